package dag

import (
	"errors"
	"testing"

	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *appcfg.Config {
	t.Helper()
	cfg, err := appcfg.FromDocument(yamldoc.MustParse(src))
	require.NoError(t, err)
	return cfg
}

func TestWorkflowChain(t *testing.T) {
	cfg := parse(t, `workflows:
  a:
    after_run: [b]
  b: {}
  c:
    before_run: [a]
`)
	wfs := &cfg.Workflows

	assert.Equal(t, []string{"a", "b", "c"}, WorkflowChain(wfs, "c"))
	assert.Equal(t, []string{"a", "c"}, UsedBy(wfs, "b"))
	assert.Equal(t, []string{"a", "b"}, BeforeRunChain(wfs, "c"))
	assert.Empty(t, AfterRunChain(wfs, "c"))
	assert.Equal(t, []string{}, WorkflowChain(wfs, "missing"))
}

func TestChainSkipsDanglingIDs(t *testing.T) {
	cfg := parse(t, `workflows:
  a:
    before_run: [ghost, b]
    after_run: [ghost]
  b: {}
`)
	assert.Equal(t, []string{"b", "a"}, WorkflowChain(&cfg.Workflows, "a"))
}

func TestNestedChainOrder(t *testing.T) {
	cfg := parse(t, `workflows:
  setup:
    before_run: [_clone]
    after_run: [_cache]
  _clone: {}
  _cache: {}
  deploy:
    before_run: [setup]
    after_run: [notify]
  notify: {}
`)
	wfs := &cfg.Workflows
	assert.Equal(t, []string{"_clone", "setup", "_cache", "deploy", "notify"}, WorkflowChain(wfs, "deploy"))

	chains := AllWorkflowChains(wfs)
	assert.Len(t, chains, 5)
	assert.Equal(t, []string{"_clone", "setup", "_cache"}, chains["setup"])

	assert.Equal(t, []string{"setup", "deploy"}, UsedBy(wfs, "_clone"))
	assert.Equal(t, []string{"_clone", "_cache", "notify"}, Chainable(wfs, "setup"))
	assert.True(t, CanChain(wfs, "notify", "_cache"))
	assert.False(t, CanChain(wfs, "setup", "deploy"))
	assert.False(t, CanChain(wfs, "setup", "setup"))
	assert.False(t, CanChain(wfs, "setup", "ghost"))
}

func TestCyclicChainsTerminate(t *testing.T) {
	cfg := parse(t, `workflows:
  self:
    before_run: [self]
  a:
    after_run: [b]
  b:
    after_run: [a]
`)
	wfs := &cfg.Workflows

	assert.Equal(t, []string{"self"}, WorkflowChain(wfs, "self"))
	assert.Equal(t, []string{"a", "b"}, WorkflowChain(wfs, "a"))
	assert.Equal(t, []string{"b", "a"}, WorkflowChain(wfs, "b"))
	assert.Equal(t, []string{"b"}, UsedBy(wfs, "a"))

	err := HasCycle(wfs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
	assert.Contains(t, err.Error(), "self -> self")
}

func TestHasCycleAcyclic(t *testing.T) {
	cfg := parse(t, `workflows:
  a:
    before_run: [b, b]
    after_run: [c]
  b:
    after_run: [c]
  c: {}
`)
	assert.NoError(t, HasCycle(&cfg.Workflows))
	assert.Equal(t, []string{"b", "c", "b", "c", "a", "c"}, WorkflowChain(&cfg.Workflows, "a"))
}

func TestCountInPipelines(t *testing.T) {
	cfg := parse(t, `pipelines:
  p1:
    stages:
      - st1: {}
  p2:
    stages:
      - st2:
          workflows:
            - wf1: {}
  p3:
    workflows:
      wf1: {}
  p4:
    stages:
      - st2: {}
stages:
  st1:
    workflows:
      - wf1: {}
  st2:
    workflows:
      - wf2: {}
workflows:
  wf1: {}
  wf2: {}
`)
	assert.Equal(t, 3, CountInPipelines("wf1", &cfg.Pipelines, &cfg.Stages))
	assert.Equal(t, 2, CountInPipelines("wf2", &cfg.Pipelines, &cfg.Stages))
	assert.Equal(t, 0, CountInPipelines("wf3", &cfg.Pipelines, &cfg.Stages))
}

func TestUsedByText(t *testing.T) {
	assert.Equal(t, "Not used by other Workflow", UsedByText(nil))
	assert.Equal(t, "Used by 1 Workflow", UsedByText([]string{"a"}))
	assert.Equal(t, "Used by 2 Workflows", UsedByText([]string{"a", "b"}))
}
