package config

// Git trigger stages a hook can be bound to. Install writes one shim
// per stage; hook-impl maps the shim back to a stage at run time.
const (
	StagePreCommit        = "pre-commit"
	StagePreMergeCommit   = "pre-merge-commit"
	StagePrePush          = "pre-push"
	StagePreRebase        = "pre-rebase"
	StageCommitMsg        = "commit-msg"
	StagePrepareCommitMsg = "prepare-commit-msg"
	StagePostCommit       = "post-commit"
	StagePostCheckout     = "post-checkout"
	StagePostMerge        = "post-merge"
	StagePostRewrite      = "post-rewrite"
	StageManual           = "manual"
)

// Stages lists every supported stage in a stable order.
var Stages = []string{
	StagePreCommit,
	StagePreMergeCommit,
	StagePrePush,
	StagePreRebase,
	StageCommitMsg,
	StagePrepareCommitMsg,
	StagePostCommit,
	StagePostCheckout,
	StagePostMerge,
	StagePostRewrite,
	StageManual,
}

// InstallableStages are the stages that correspond to real git hook
// scripts; manual is run-only.
var InstallableStages = Stages[: len(Stages)-1 : len(Stages)-1]

var stageSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Stages))
	for _, s := range Stages {
		set[s] = struct{}{}
	}
	return set
}()

// KnownStage reports whether name is a supported stage.
func KnownStage(name string) bool {
	_, ok := stageSet[name]
	return ok
}

// EffectiveStages returns the stages the hook fires for: its own list
// when set, else the document's default_stages, else every stage.
func (c *Config) EffectiveStages(h Hook) []string {
	if len(h.Stages) > 0 {
		return h.Stages
	}
	if len(c.DefaultStages) > 0 {
		return c.DefaultStages
	}
	return Stages
}

// RunsAtStage reports whether the hook fires for the given stage.
func (c *Config) RunsAtStage(h Hook, stage string) bool {
	for _, s := range c.EffectiveStages(h) {
		if s == stage {
			return true
		}
	}
	return false
}
