package document

import (
	"strings"
	"testing"

	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cascadeDoc = `format_version: "13"
pipelines:
  pl1:
    stages:
      - st1: {}
  pl2:
    title: Keeps title
    stages:
      - st2:
          workflows:
            - target: {}
  pl3:
    stages:
      - st3: {}
      - st2: {}
stages:
  st1:
    workflows:
      - target: {}
  st2:
    title: Only a title left
    workflows:
      - target:
          run_if: .IsCI
  st3:
    workflows:
      - other: {}
      - target: {}
workflows:
  target:
    steps:
      - script@1: {}
  other:
    before_run:
      - target
    after_run:
      - target
      - _cleanup
  _cleanup: {}
trigger_map:
  - push_branch: main
    workflow: target
  - tag: "*"
    pipeline: pl1
`

func TestDeleteWorkflowCascade(t *testing.T) {
	d := mustApply(t, cascadeDoc, DeleteWorkflow("target"))

	assertDoc(t, `format_version: "13"
pipelines:
  pl2:
    title: Keeps title
    stages:
      - st2: {}
  pl3:
    stages:
      - st3: {}
      - st2: {}
stages:
  st2:
    title: Only a title left
  st3:
    workflows:
      - other: {}
workflows:
  other:
    after_run:
      - _cleanup
  _cleanup: {}
`, d)
	assert.NotContains(t, d.String(), "target")
	assert.False(t, d.Has(yamldoc.P("trigger_map")))
}

func TestDeleteWorkflowDropsEmptiedSections(t *testing.T) {
	d := mustApply(t, `stages:
  st1:
    workflows:
      - only: {}
pipelines:
  pl1:
    stages:
      - st1: {}
workflows:
  only: {}
trigger_map:
  - push_branch: main
    workflow: only
`, DeleteWorkflow("only"))

	for _, key := range []string{"stages", "pipelines", "workflows", "trigger_map"} {
		assert.False(t, d.Has(yamldoc.P(key)), key)
	}
	assert.Equal(t, "{}\n", d.Canonical())
}

func TestDeleteWorkflowKeepsUnrelatedPipelineStages(t *testing.T) {
	d := mustApply(t, `pipelines:
  pl:
    stages:
      - st1
      - legacy
      - planned: {}
      - st2:
          workflows:
            - target: {}
stages:
  st1:
    workflows:
      - target: {}
workflows:
  target: {}
  other: {}
`, DeleteWorkflow("target"))

	assertDoc(t, `pipelines:
  pl:
    stages:
      - legacy
      - planned: {}
workflows:
  other: {}
`, d)

	// Entries naming missing stages stay when nothing references the workflow.
	src := `pipelines:
  pl:
    stages:
      - ghost
      - missing: {}
workflows:
  a: {}
  b: {}
`
	d = mustApply(t, src, DeleteWorkflow("a"))
	assertDoc(t, strings.Replace(src, "  a: {}\n", "", 1), d)
}

func TestDeleteWorkflowMissingIsNoop(t *testing.T) {
	src := yamldoc.MustParse(cascadeDoc)
	d, err := Apply(src, DeleteWorkflow("missing"))
	require.NoError(t, err)
	assert.True(t, yamldoc.Equal(src, d))
	assert.Equal(t, cascadeDoc, d.String())
}

func TestDeleteWorkflowGraphPipeline(t *testing.T) {
	d := mustApply(t, `pipelines:
  graph:
    workflows:
      build: {}
      test:
        depends_on:
          - build
      deploy:
        depends_on:
          - build
          - test
workflows:
  build: {}
  test: {}
  deploy: {}
`, DeleteWorkflow("build"))

	assertDoc(t, `pipelines:
  graph:
    workflows:
      test: {}
      deploy:
        depends_on:
          - test
workflows:
  test: {}
  deploy: {}
`, d)
}

func TestDeleteWorkflows(t *testing.T) {
	d := mustApply(t, cascadeDoc, DeleteWorkflows("target", "other", "missing"))
	cfg, err := appcfg.FromDocument(d)
	require.NoError(t, err)
	assert.Equal(t, []string{"_cleanup"}, cfg.Workflows.Keys())
	assert.False(t, cfg.Stages.Has("st3"))
	assert.False(t, strings.Contains(d.String(), "other"))
}

func TestDeleteChainedWorkflow(t *testing.T) {
	src := yamldoc.MustParse(cascadeDoc)

	d, err := Apply(src, DeleteChainedWorkflow(0, "other", appcfg.PlacementBeforeRun))
	require.NoError(t, err)
	assert.False(t, d.Has(yamldoc.P("workflows", "other", "before_run")))
	assert.True(t, d.Has(yamldoc.P("workflows", "other")))

	d, err = Apply(src, DeleteChainedWorkflow(1, "other", appcfg.PlacementAfterRun))
	require.NoError(t, err)
	assert.Equal(t, []string{"target"}, yamldoc.ScalarValues(d.Get(yamldoc.P("workflows", "other", "after_run"))))

	for _, fn := range []Mutator{
		DeleteChainedWorkflow(5, "other", appcfg.PlacementAfterRun),
		DeleteChainedWorkflow(0, "ghost", appcfg.PlacementAfterRun),
		DeleteChainedWorkflow(0, "_cleanup", appcfg.PlacementBeforeRun),
		DeleteChainedWorkflow(0, "other", appcfg.Placement("sideways")),
	} {
		d, err := Apply(src, fn)
		require.NoError(t, err)
		assert.True(t, yamldoc.Equal(src, d))
	}
}
