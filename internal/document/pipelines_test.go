package document

import (
	"testing"

	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageLifecycle(t *testing.T) {
	d := mustApply(t, graphDoc, Chain(
		CreateStage("test_stage"),
		AddStageWorkflow("test_stage", "ship", 0),
		AddStageWorkflow("test_stage", "_notify", 0),
		AddPipelineStage("release", "test_stage", 1),
	))
	cfg, err := appcfg.FromDocument(d)
	require.NoError(t, err)
	st, ok := cfg.Stages.Get("test_stage")
	require.True(t, ok)
	require.Len(t, st.Workflows, 2)
	assert.Equal(t, "_notify", st.Workflows[0].ID)
	pl, _ := cfg.Pipelines.Get("release")
	require.Len(t, pl.Stages, 2)
	assert.Equal(t, "test_stage", pl.Stages[1].ID)

	d, err = Apply(d, RenameStage("test_stage", "verify"))
	require.NoError(t, err)
	assert.True(t, d.Has(yamldoc.P("pipelines", "release", "stages", 1, "verify")))

	d, err = Apply(d, Chain(RemoveStageWorkflow("verify", 1), RemoveStageWorkflow("verify", 0)))
	require.NoError(t, err)
	assert.True(t, d.Has(yamldoc.P("stages", "verify")))
	assert.False(t, d.Has(yamldoc.P("stages", "verify", "workflows")))

	d, err = Apply(d, DeleteStage("verify"))
	require.NoError(t, err)
	assert.False(t, d.Has(yamldoc.P("stages", "verify")))
	assert.Equal(t, 1, yamldoc.Len(d.Get(yamldoc.P("pipelines", "release", "stages"))))

	_, err = Apply(d, AddStageWorkflow("build_stage", "ghost", 0))
	var nf *appcfg.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = Apply(d, RemoveStageWorkflow("build_stage", 9))
	var oob *appcfg.IndexOutOfBoundsError
	assert.ErrorAs(t, err, &oob)

	_, err = Apply(d, CreateStage("build_stage"))
	var conflict *appcfg.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestDeleteStageDropsEmptiedList(t *testing.T) {
	d := mustApply(t, `pipelines:
  p:
    title: P
    stages:
      - s1: {}
stages:
  s1: {}
`, DeleteStage("s1"))
	assertDoc(t, `pipelines:
  p:
    title: P
`, d)

	src := yamldoc.MustParse(graphDoc)
	d, err := Apply(src, DeleteStage("missing"))
	require.NoError(t, err)
	assert.True(t, yamldoc.Equal(src, d))
}

func TestPipelineLifecycle(t *testing.T) {
	d := mustApply(t, graphDoc, CreatePipeline("release_copy", "release"))
	assert.True(t, d.Has(yamldoc.P("pipelines", "release_copy", "stages", 0, "build_stage")))

	d, err := Apply(d, RenamePipeline("release", "ship_it"))
	require.NoError(t, err)
	assert.Equal(t, "ship_it", yamldoc.ScalarText(d.Get(yamldoc.P("trigger_map", 1, "pipeline"))))

	d, err = Apply(d, DeletePipeline("ship_it"))
	require.NoError(t, err)
	assert.False(t, d.Has(yamldoc.P("pipelines", "ship_it")))
	assert.Equal(t, 1, yamldoc.Len(d.Get(yamldoc.P("trigger_map"))))

	d, err = Apply(d, RemovePipelineStage("release_copy", 0))
	require.NoError(t, err)
	assert.True(t, d.Has(yamldoc.P("pipelines", "release_copy")))
	assert.False(t, d.Has(yamldoc.P("pipelines", "release_copy", "stages")))

	_, err = Apply(d, CreatePipeline("bad name", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Pipeline name must only contain letters, numbers, dashes, underscores or periods.")

	_, err = Apply(d, AddPipelineStage("release_copy", "ghost", 0))
	var nf *appcfg.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestTriggers(t *testing.T) {
	d := mustApply(t, graphDoc, UpdateTriggersEnabled(SourceWorkflows, "_notify", false))
	assertDoc(t, `pipelines:
  release:
    stages:
      - build_stage:
          workflows:
            - build: {}
  graph:
    workflows:
      build: {}
      ship:
        depends_on: [build]
stages:
  build_stage:
    workflows:
      - build: {}
      - lint
workflows:
  build:
    after_run:
      - _notify
    envs:
      - MODE: release
  ship:
    before_run:
      - build
  _notify:
    triggers:
      enabled: false
trigger_map:
  - push_branch: main
    workflow: build
  - tag: v*
    pipeline: release
`, d)

	d, err := Apply(d, UpdateTriggersEnabled(SourceWorkflows, "_notify", true))
	require.NoError(t, err)
	assert.True(t, yamldoc.Equal(yamldoc.MustParse(graphDoc), d))

	_, err = Apply(d, UpdateTriggersEnabled(SourceStepBundles, "x", true))
	assert.Error(t, err)

	d, err = Apply(d, Chain(RemoveTriggerMapItem(1), RemoveTriggerMapItem(0)))
	require.NoError(t, err)
	assert.False(t, d.Has(yamldoc.P("trigger_map")))

	_, err = Apply(d, RemoveTriggerMapItem(0))
	var oob *appcfg.IndexOutOfBoundsError
	assert.ErrorAs(t, err, &oob)

	d, err = Apply(d, AddTriggerMapItem(appcfg.TriggerMapItem{Pipeline: "release", PullRequestTargetBranch: "main"}))
	require.NoError(t, err)
	assert.Equal(t, "trigger_map:\n  - pipeline: release\n    pull_request_target_branch: main\n",
		extract(t, d, "trigger_map"))

	_, err = Apply(d, AddTriggerMapItem(appcfg.TriggerMapItem{Workflow: "ghost"}))
	assert.Error(t, err)
}

// extract renders one top-level section of d.
func extract(t *testing.T, d *yamldoc.Document, key string) string {
	t.Helper()
	part := yamldoc.New()
	require.NoError(t, part.Set(yamldoc.P(key), d.Get(yamldoc.P(key))))
	return part.String()
}
