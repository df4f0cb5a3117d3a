package document

import (
	"errors"
	"testing"

	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func mustApply(t *testing.T, src string, fn Mutator) *yamldoc.Document {
	t.Helper()
	out, err := Apply(yamldoc.MustParse(src), fn)
	require.NoError(t, err)
	return out
}

func assertDoc(t *testing.T, want string, got *yamldoc.Document) {
	t.Helper()
	assert.Equal(t, yamldoc.MustParse(want).Canonical(), got.Canonical())
}

const envDoc = `app:
  envs:
    - PROJECT_NAME: demo
    - NODE_VERSION: 20
      opts:
        is_expand: false
workflows:
  wf1:
    envs:
      - A: a
  wf2:
    title: Second
`

func TestResolveEnvVarPath(t *testing.T) {
	p, err := ResolveEnvVarPath(appcfg.ScopeProject, "", -1, "")
	require.NoError(t, err)
	assert.Equal(t, yamldoc.P("app", "envs"), p)

	p, err = ResolveEnvVarPath(appcfg.ScopeWorkflow, "wf1", 2, "KEY")
	require.NoError(t, err)
	assert.Equal(t, yamldoc.P("workflows", "wf1", "envs", 2, "KEY"), p)

	p, err = ResolveEnvVarPath(appcfg.ScopeWorkflow, "wf1", 0, "KEY")
	require.NoError(t, err)
	assert.Equal(t, yamldoc.P("workflows", "wf1", "envs", 0, "KEY"), p)

	_, err = ResolveEnvVarPath(appcfg.ScopeWorkflow, "", -1, "")
	var scopeErr *appcfg.ScopeError
	require.ErrorAs(t, err, &scopeErr)
	assert.Equal(t, "sourceId is required when source is Workflows", err.Error())

	p, err = ResolveEnvVarPath(appcfg.ScopeContainer, "node", 1, "")
	require.NoError(t, err)
	assert.Equal(t, yamldoc.P("containers", "node", "envs", 1), p)

	_, err = ResolveEnvVarPath(appcfg.ScopeContainer, "", -1, "")
	require.ErrorAs(t, err, &scopeErr)
	assert.Equal(t, "sourceId is required when source is Containers", err.Error())
}

func TestEnvVars(t *testing.T) {
	d := yamldoc.MustParse(envDoc)

	all, err := EnvVars(d, nil, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, appcfg.EnvVar{Key: "PROJECT_NAME", Value: "demo", Source: "Project envs"}, all[0])
	assert.Equal(t, "20", all[1].Value)
	require.NotNil(t, all[1].IsExpand)
	assert.False(t, *all[1].IsExpand)
	assert.Equal(t, "Workflow: wf1", all[2].Source)

	project := appcfg.ScopeProject
	envs, err := EnvVars(d, &project, "")
	require.NoError(t, err)
	assert.Len(t, envs, 2)

	wfScope := appcfg.ScopeWorkflow
	envs, err = EnvVars(d, &wfScope, "wf2")
	require.NoError(t, err)
	assert.Empty(t, envs)

	envs, err = EnvVars(d, &wfScope, appcfg.AllWorkflows)
	require.NoError(t, err)
	assert.Len(t, envs, 1)

	_, err = EnvVars(d, &wfScope, "nope")
	var nf *appcfg.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Workflow nope not found. Ensure that the workflow exists in the 'workflows' section.", err.Error())

	_, err = EnvVars(d, &wfScope, "")
	var scopeErr *appcfg.ScopeError
	assert.ErrorAs(t, err, &scopeErr)
}

const containerDoc = `app:
  envs:
    - PROJECT_NAME: demo
workflows:
  wf1: {}
containers:
  node:
    image: node:20
    envs:
      - NODE_ENV: test
      - CI: "true"
  redis:
    image: redis:7
`

func TestContainerEnvVars(t *testing.T) {
	d := yamldoc.MustParse(containerDoc)

	all, err := EnvVars(d, nil, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Project envs", all[0].Source)
	assert.Equal(t, appcfg.EnvVar{Key: "NODE_ENV", Value: "test", Source: "Container: node"}, all[1])

	scope := appcfg.ScopeContainer
	envs, err := EnvVars(d, &scope, "node")
	require.NoError(t, err)
	assert.Len(t, envs, 2)

	envs, err = EnvVars(d, &scope, "redis")
	require.NoError(t, err)
	assert.Empty(t, envs)

	envs, err = EnvVars(d, &scope, appcfg.AllWorkflows)
	require.NoError(t, err)
	assert.Len(t, envs, 2)

	_, err = EnvVars(d, &scope, "mysql")
	assert.Equal(t, "Container 'mysql' not found. Ensure that the container exists in the 'containers' section.", err.Error())
}

func TestContainerEnvVarMutations(t *testing.T) {
	d := mustApply(t, containerDoc, Chain(
		AppendEnvVar(appcfg.EnvVar{Key: "PORT", Value: "6379"}, appcfg.ScopeContainer, "redis"),
		UpdateEnvVarValue("NODE_ENV", "production", 0, appcfg.ScopeContainer, "node"),
	))
	assert.Equal(t, "6379", d.Get(yamldoc.P("containers", "redis", "envs", 0, "PORT")).Value)
	assert.Equal(t, "production", d.Get(yamldoc.P("containers", "node", "envs", 0, "NODE_ENV")).Value)
	assert.Contains(t, d.String(), "  redis:\n    image: redis:7\n    envs:\n      - PORT: 6379\n")

	d, err := Apply(d, Chain(
		RemoveEnvVar(0, appcfg.ScopeContainer, "redis"),
		RemoveEnvVar(1, appcfg.ScopeContainer, "node"),
	))
	require.NoError(t, err)
	assert.True(t, d.Has(yamldoc.P("containers", "redis")))
	assert.False(t, d.Has(yamldoc.P("containers", "redis", "envs")))
	assert.Equal(t, 1, yamldoc.Len(d.Get(yamldoc.P("containers", "node", "envs"))))

	_, err = Apply(d, RemoveEnvVar(0, appcfg.ScopeContainer, "redis"))
	assert.Equal(t, "Container 'redis' doesn't have an 'envs' section", err.Error())

	_, err = Apply(d, RemoveEnvVar(4, appcfg.ScopeContainer, "node"))
	var oob *appcfg.IndexOutOfBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, "Environment variable not found in Container 'node', index 4 is out of bounds", err.Error())

	_, err = Apply(d, AppendEnvVar(appcfg.EnvVar{Key: "X"}, appcfg.ScopeContainer, "mysql"))
	var nf *appcfg.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "container", nf.Kind)
}

func TestAppendEnvVarStoresStringShapedValue(t *testing.T) {
	d := mustApply(t, "format_version: \"13\"\n", AppendEnvVar(appcfg.EnvVar{
		Key: "SERVICE_VERSION", Value: "1.2.3", IsExpand: appcfg.Bool(true),
	}, appcfg.ScopeProject, ""))

	v := d.Get(yamldoc.P("app", "envs", 0, "SERVICE_VERSION"))
	require.NotNil(t, v)
	assert.Equal(t, "!!str", v.Tag)
	assert.Equal(t, "1.2.3", v.Value)
	assert.False(t, d.Has(yamldoc.P("app", "envs", 0, "opts")))
	assert.Equal(t, "format_version: \"13\"\napp:\n  envs:\n    - SERVICE_VERSION: 1.2.3\n", d.String())
}

func TestAppendEnvVarKeepsNumbers(t *testing.T) {
	d := mustApply(t, envDoc, AppendEnvVar(appcfg.EnvVar{Key: "PI", Value: "3.1400"}, appcfg.ScopeWorkflow, "wf2"))
	v := d.Get(yamldoc.P("workflows", "wf2", "envs", 0, "PI"))
	require.NotNil(t, v)
	assert.Equal(t, "!!float", v.Tag)
	assert.Equal(t, "3.1400", v.Value)

	_, err := Apply(yamldoc.MustParse(envDoc), AppendEnvVar(appcfg.EnvVar{Key: "X"}, appcfg.ScopeWorkflow, "ghost"))
	var nf *appcfg.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestCreateEnvVar(t *testing.T) {
	d := mustApply(t, envDoc, CreateEnvVar(appcfg.ScopeWorkflow, "wf1"))
	assertDoc(t, `app:
  envs:
    - PROJECT_NAME: demo
    - NODE_VERSION: 20
      opts:
        is_expand: false
workflows:
  wf1:
    envs:
      - A: a
      - "": ""
        opts:
          is_expand: false
  wf2:
    title: Second
`, d)
}

func TestRemoveEnvVar(t *testing.T) {
	src := yamldoc.MustParse(envDoc)

	_, err := Apply(src, RemoveEnvVar(3, appcfg.ScopeProject, ""))
	var oob *appcfg.IndexOutOfBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Contains(t, err.Error(), "index 3 is out of bounds")

	d, err := Apply(src, RemoveEnvVar(0, appcfg.ScopeWorkflow, "wf1"))
	require.NoError(t, err)
	assert.True(t, d.Has(yamldoc.P("workflows", "wf1")))
	assert.False(t, d.Has(yamldoc.P("workflows", "wf1", "envs")))

	d, err = Apply(d, Chain(
		RemoveEnvVar(1, appcfg.ScopeProject, ""),
		RemoveEnvVar(0, appcfg.ScopeProject, ""),
	))
	require.NoError(t, err)
	assert.False(t, d.Has(yamldoc.P("app")))

	_, err = Apply(src, RemoveEnvVar(0, appcfg.ScopeWorkflow, "wf2"))
	require.Error(t, err)
	assert.Equal(t, "Workflow 'wf2' doesn't have an 'envs' section", err.Error())

	_, err = Apply(yamldoc.MustParse("workflows: {}\n"), RemoveEnvVar(0, appcfg.ScopeProject, ""))
	require.Error(t, err)
	assert.Equal(t, "The 'app' section is not found", err.Error())

	_, err = Apply(yamldoc.MustParse("app:\n  title: x\n"), RemoveEnvVar(0, appcfg.ScopeProject, ""))
	require.Error(t, err)
	assert.Equal(t, "The 'app.envs' section doesn't exist", err.Error())
}

func TestRemoveEnvVarDoesNotMutateInput(t *testing.T) {
	src := yamldoc.MustParse(envDoc)
	before := src.Canonical()
	_, err := Apply(src, RemoveEnvVar(0, appcfg.ScopeProject, ""))
	require.NoError(t, err)
	assert.Equal(t, before, src.Canonical())
	assert.Equal(t, envDoc, src.String())
}

func TestUpdateEnvVarKey(t *testing.T) {
	src := yamldoc.MustParse(envDoc)

	_, err := Apply(src, UpdateEnvVarKey("NODE_VERSION", "NODE", 0, appcfg.ScopeProject, ""))
	var mismatch *appcfg.KeyMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "PROJECT_NAME", mismatch.Actual)
	assert.Equal(t, `Environment variable key is not matching "NODE_VERSION"`, err.Error())

	d, err := Apply(src, UpdateEnvVarKey("NODE_VERSION", "NODE", 1, appcfg.ScopeProject, ""))
	require.NoError(t, err)
	assertDoc(t, `app:
  envs:
    - PROJECT_NAME: demo
    - NODE: 20
      opts:
        is_expand: false
workflows:
  wf1:
    envs:
      - A: a
  wf2:
    title: Second
`, d)
}

func TestUpdateEnvVarValue(t *testing.T) {
	src := yamldoc.MustParse(envDoc)

	d, err := Apply(src, UpdateEnvVarValue("PROJECT_NAME", "true", 0, appcfg.ScopeProject, ""))
	require.NoError(t, err)
	assert.Equal(t, "!!bool", d.Get(yamldoc.P("app", "envs", 0, "PROJECT_NAME")).Tag)

	d, err = Apply(d, UpdateEnvVarValue("PROJECT_NAME", "0.50", 0, appcfg.ScopeProject, ""))
	require.NoError(t, err)
	assert.Equal(t, "0.50", d.Get(yamldoc.P("app", "envs", 0, "PROJECT_NAME")).Value)

	_, err = Apply(src, UpdateEnvVarValue("OTHER", "x", 0, appcfg.ScopeProject, ""))
	var mismatch *appcfg.KeyMismatchError
	assert.ErrorAs(t, err, &mismatch)

	_, err = Apply(src, UpdateEnvVarValue("A", "x", 4, appcfg.ScopeWorkflow, "wf1"))
	require.Error(t, err)
	assert.Equal(t, "Environment variable not found in Workflow 'wf1', index 4 is out of bounds", err.Error())
}

func TestUpdateEnvVarIsExpand(t *testing.T) {
	d := mustApply(t, envDoc, UpdateEnvVarIsExpand(true, 1, appcfg.ScopeProject, ""))
	assert.False(t, d.Has(yamldoc.P("app", "envs", 1, "opts")))

	d, err := Apply(d, UpdateEnvVarIsExpand(false, 0, appcfg.ScopeProject, ""))
	require.NoError(t, err)
	b, ok := yamldoc.ScalarBool(d.Get(yamldoc.P("app", "envs", 0, "opts", "is_expand")))
	assert.True(t, ok)
	assert.False(t, b)

	d = mustApply(t, `app:
  envs:
    - A: a
      opts:
        is_expand: false
        is_required: true
`, UpdateEnvVarIsExpand(true, 0, appcfg.ScopeProject, ""))
	assertDoc(t, `app:
  envs:
    - A: a
      opts:
        is_required: true
`, d)
}

func TestReorderEnvVarsIsPermutation(t *testing.T) {
	src := yamldoc.MustParse(`app:
  envs:
    - A: 1 # first
    - B: "2"
    - C: three
`)
	keys := func(d *yamldoc.Document) []string {
		var out []string
		for _, n := range d.GetSeq(yamldoc.P("app", "envs")).Content {
			k, _ := appcfg.EnvVarKey(n)
			out = append(out, k)
		}
		return out
	}

	d, err := Apply(src, ReorderEnvVars([]int{2, 0, 1}, appcfg.ScopeProject, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, keys(d))

	back, err := Apply(d, ReorderEnvVars([]int{1, 2, 0}, appcfg.ScopeProject, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, keys(back))
	assert.Equal(t, src.Canonical(), back.Canonical())

	_, err = Apply(src, ReorderEnvVars([]int{1, 0}, appcfg.ScopeProject, ""))
	var lm *appcfg.LengthMismatchError
	require.ErrorAs(t, err, &lm)
	assert.Equal(t, "The number of indices (2) should match the number of environment variables (3)", err.Error())

	_, err = Apply(src, ReorderEnvVars([]int{0, 0, 1}, appcfg.ScopeProject, ""))
	var oob *appcfg.IndexOutOfBoundsError
	assert.True(t, errors.As(err, &oob))
}

func TestReorderEnvVarsMovesNodes(t *testing.T) {
	d := yamldoc.MustParse("app:\n  envs:\n    - A: a\n    - B: b\n")
	orig := append([]*yaml.Node(nil), d.GetSeq(yamldoc.P("app", "envs")).Content...)

	require.NoError(t, ReorderEnvVars([]int{1, 0}, appcfg.ScopeProject, "")(d))
	seq := d.GetSeq(yamldoc.P("app", "envs"))
	assert.Same(t, orig[1], seq.Content[0])
	assert.Same(t, orig[0], seq.Content[1])
}
