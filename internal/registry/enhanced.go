package registry

import (
	"time"

	"github.com/castforge/castforge/internal/phase"
)

// Enhanced returns the Standard catalogue plus apply_effects, with
// render_video bound to the effects-capable renderer and the publish
// phases preferring apply_effects' output over render_video's own.
//
// apply_effects is BestEffort: a failed effects pass still leaves a
// publishable video_handle behind, so publishing degrades gracefully
// instead of failing the whole run over a cosmetic step.
func Enhanced() []*phase.Spec {
	specs := Standard()
	out := make([]*phase.Spec, 0, len(specs)+1)

	for _, s := range specs {
		switch s.ID {
		case RenderVideo:
			cp := *s
			cp.Adapter = AdapterVideoEnhanced
			out = append(out, &cp)
			out = append(out, &phase.Spec{
				ID:          ApplyEffects,
				Requires:    phase.RequiresSet(RenderVideo),
				Group:       "effects",
				Adapter:     AdapterVideoEffects,
				Produces:    phase.KeySet(KeyEffectsVideoHandle),
				Retry:       phase.DefaultRetryPolicy(),
				Timeout:     3 * time.Minute,
				Criticality: phase.BestEffort,
			})
		case PublishA, PublishB, PublishC:
			cp := *s
			cp.Requires = phase.RequiresSet(RenderVideo, ApplyEffects)
			cp.AcceptsMissing = phase.KeySet(KeyEffectsVideoHandle)
			out = append(out, &cp)
		default:
			out = append(out, s)
		}
	}
	return out
}
