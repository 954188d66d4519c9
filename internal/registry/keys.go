// Package registry holds the static phase catalogues for the Standard and
// Enhanced workflow variants. The two registries differ only in content —
// internal/scheduler never branches on workflow.Type itself.
package registry

import "github.com/castforge/castforge/internal/phase"

// Context keys written by the standard catalogue's phases.
const (
	KeyCredentialsValid   phase.Key = "credentials_valid"
	KeyItem               phase.Key = "item"
	KeyScrapedContent     phase.Key = "scraped_content"
	KeyCategory           phase.Key = "category"
	KeyProductsValid      phase.Key = "products_valid"
	KeyPersisted          phase.Key = "persisted"
	KeyTextContent        phase.Key = "text_content"
	KeyScriptText         phase.Key = "script_text"
	KeyImageHandles       phase.Key = "image_handles"
	KeyVoiceHandles       phase.Key = "voice_handles"
	KeyMediaValid         phase.Key = "media_valid"
	KeyVideoHandle        phase.Key = "video_handle"
	KeyEffectsVideoHandle phase.Key = "effects_video_handle"
	KeyPublishAResult     phase.Key = "publish_a_result"
	KeyPublishBResult     phase.Key = "publish_b_result"
	KeyPublishCResult     phase.Key = "publish_c_result"
	KeyStatusUpdated      phase.Key = "status_updated"
	KeyFinalized          phase.Key = "finalized"
)

// AdapterIDs the registries bind. Each maps 1:1 to an internal/refadapters
// implementation wired by the orchestrator facade's caller.
const (
	AdapterTokenRefresh    phase.AdapterID = "tokenrefresh.refresh"
	AdapterRecordFetch     phase.AdapterID = "record_store.fetch_pending"
	AdapterRecordPatch     phase.AdapterID = "record_store.patch"
	AdapterScrape          phase.AdapterID = "scrape.fetch"
	AdapterCategoryExtract phase.AdapterID = "category.extract"
	AdapterValidate        phase.AdapterID = "validate.check"
	AdapterTextGenerate    phase.AdapterID = "text.generate"
	AdapterImageGenerate   phase.AdapterID = "image.generate"
	AdapterVoiceSynthesize phase.AdapterID = "voice.synthesize"
	AdapterVideoRender     phase.AdapterID = "video.render"
	AdapterVideoEnhanced   phase.AdapterID = "video.render.enhanced"
	AdapterVideoEffects    phase.AdapterID = "video.effects.apply"
	AdapterPublish         phase.AdapterID = "publisher.publish"
	AdapterLifecycle       phase.AdapterID = "lifecycle.finalize"
)
