package cfg

// Execution modes for pipeline dispatch: direct runs the pipeline in-process,
// api posts a trigger request to a remote pipeline service.
const (
	ExecutionModeDirect = "direct"
	ExecutionModeAPI    = "api"
)

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	DownloadDir       string
	ScheduleFile      string
	Port              string
	SchedulerInterval int
	APIAccessKey      string

	// Pipeline dispatch
	ExecutionMode  string
	PipelineAPIURL string

	// External services
	PDFCoAPIKey string
	GenAIAPIKey string
	GenAIModel  string

	// Application metadata
	UserAgent string
	Timezone  string
	Headless  bool
	Debug     bool
	Version   string
}
