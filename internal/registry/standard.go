package registry

import (
	"time"

	"github.com/castforge/castforge/internal/phase"
)

// Standard phase IDs, in the registration order the scheduler uses as its
// tie-break within a layer.
const (
	ValidateCredentials phase.ID = "validate_credentials"
	FetchItem           phase.ID = "fetch_item"
	ScrapeSource        phase.ID = "scrape_source"
	ExtractCategory     phase.ID = "extract_category"
	ValidateProducts    phase.ID = "validate_products"
	PersistProducts     phase.ID = "persist_products"
	GenerateImages      phase.ID = "generate_images"
	GenerateTextContent phase.ID = "generate_text_content"
	GenerateScripts     phase.ID = "generate_scripts"
	GenerateVoices      phase.ID = "generate_voices"
	ValidateMedia       phase.ID = "validate_media"
	RenderVideo         phase.ID = "render_video"
	ApplyEffects        phase.ID = "apply_effects" // Enhanced only
	PublishA            phase.ID = "publish_a"
	PublishB            phase.ID = "publish_b"
	PublishC            phase.ID = "publish_c"
	UpdateStatus        phase.ID = "update_status"
	Finalize            phase.ID = "finalize"
)

const defaultTimeout = 30 * time.Second

// Standard returns the 17-phase catalogue for workflow.Standard.
func Standard() []*phase.Spec {
	return []*phase.Spec{
		{
			ID:          ValidateCredentials,
			Group:       "bootstrap",
			Adapter:     AdapterTokenRefresh,
			Produces:    phase.KeySet(KeyCredentialsValid),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.Critical,
		},
		{
			ID:          FetchItem,
			Requires:    phase.RequiresSet(ValidateCredentials),
			Group:       "ingest",
			Adapter:     AdapterRecordFetch,
			Produces:    phase.KeySet(KeyItem),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.Critical,
		},
		{
			ID:          ScrapeSource,
			Requires:    phase.RequiresSet(FetchItem),
			Group:       "scrape",
			Adapter:     AdapterScrape,
			Produces:    phase.KeySet(KeyScrapedContent),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.Critical,
		},
		{
			ID:          ExtractCategory,
			Requires:    phase.RequiresSet(ScrapeSource),
			Group:       "categorize",
			Adapter:     AdapterCategoryExtract,
			Produces:    phase.KeySet(KeyCategory),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.Critical,
		},
		{
			ID:          ValidateProducts,
			Requires:    phase.RequiresSet(ExtractCategory),
			Group:       "validation",
			Adapter:     AdapterValidate,
			Produces:    phase.KeySet(KeyProductsValid),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.Critical,
		},
		{
			ID:          PersistProducts,
			Requires:    phase.RequiresSet(ValidateProducts),
			Group:       "persistence",
			Adapter:     AdapterRecordPatch,
			Produces:    phase.KeySet(KeyPersisted),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.Critical,
		},
		{
			ID:          GenerateTextContent,
			Requires:    phase.RequiresSet(PersistProducts),
			Group:       "content",
			Adapter:     AdapterTextGenerate,
			Produces:    phase.KeySet(KeyTextContent),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.Critical,
		},
		{
			ID:          GenerateScripts,
			Requires:    phase.RequiresSet(GenerateTextContent),
			Group:       "scripts",
			Adapter:     AdapterTextGenerate,
			Produces:    phase.KeySet(KeyScriptText),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.Critical,
		},
		{
			ID:          GenerateImages,
			Requires:    phase.RequiresSet(PersistProducts),
			Group:       "media",
			Adapter:     AdapterImageGenerate,
			Produces:    phase.KeySet(KeyImageHandles),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     2 * time.Minute,
			Criticality: phase.Critical,
		},
		{
			ID:          GenerateVoices,
			Requires:    phase.RequiresSet(GenerateScripts),
			Group:       "media",
			Adapter:     AdapterVoiceSynthesize,
			Produces:    phase.KeySet(KeyVoiceHandles),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     2 * time.Minute,
			Criticality: phase.Critical,
		},
		{
			ID:          ValidateMedia,
			Requires:    phase.RequiresSet(GenerateImages, GenerateVoices),
			Group:       "media_validation",
			Adapter:     AdapterValidate,
			Produces:    phase.KeySet(KeyMediaValid),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.Critical,
		},
		{
			ID:          RenderVideo,
			Requires:    phase.RequiresSet(ValidateMedia),
			Group:       "render",
			Adapter:     AdapterVideoRender,
			Produces:    phase.KeySet(KeyVideoHandle),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     5 * time.Minute,
			Criticality: phase.Critical,
		},
		{
			ID:          PublishA,
			Requires:    phase.RequiresSet(RenderVideo),
			Group:       "publishing",
			Adapter:     AdapterPublish,
			Produces:    phase.KeySet(KeyPublishAResult),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.BestEffort,
		},
		{
			ID:          PublishB,
			Requires:    phase.RequiresSet(RenderVideo),
			Group:       "publishing",
			Adapter:     AdapterPublish,
			Produces:    phase.KeySet(KeyPublishBResult),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.BestEffort,
		},
		{
			ID:          PublishC,
			Requires:    phase.RequiresSet(RenderVideo),
			Group:       "publishing",
			Adapter:     AdapterPublish,
			Produces:    phase.KeySet(KeyPublishCResult),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.BestEffort,
		},
		{
			ID:             UpdateStatus,
			Requires:       phase.RequiresSet(PublishA, PublishB, PublishC),
			AcceptsMissing: phase.KeySet(KeyPublishAResult, KeyPublishBResult, KeyPublishCResult),
			Group:          "status",
			Adapter:        AdapterRecordPatch,
			Produces:       phase.KeySet(KeyStatusUpdated),
			Retry:          phase.DefaultRetryPolicy(),
			Timeout:        defaultTimeout,
			Criticality:    phase.Critical,
		},
		{
			ID:          Finalize,
			Requires:    phase.RequiresSet(UpdateStatus),
			Group:       "finalization",
			Adapter:     AdapterLifecycle,
			Produces:    phase.KeySet(KeyFinalized),
			Retry:       phase.DefaultRetryPolicy(),
			Timeout:     defaultTimeout,
			Criticality: phase.Critical,
		},
	}
}
