package types

import "time"

// Graph field tags deliberately avoid omitempty: consumers must see an explicit
// null or empty list rather than a missing key.

// ScannedFile is one regular file read by the scanner.
type ScannedFile struct {
	// Repo-relative path using forward slashes (e.g., "src/app.go").
	RelativePath string `json:"relativePath"`
	// Decoded text; nil for binary files or when content was not requested.
	Content *string `json:"content"`
	IsText  bool    `json:"isText"`
	// Size in bytes of the raw file.
	SizeBytes int64 `json:"sizeBytes"`
	// Non-empty when the file could not be read; the entry is then treated as binary.
	ReadError string `json:"readError"`

	// Raw bytes as read from disk, kept for hashing and line counting.
	Raw []byte `json:"-"`
}

// RepositoryFileNode is the graph view of a scanned file.
type RepositoryFileNode struct {
	RelativePath string  `json:"relativePath"`
	Extension    string  `json:"extension"`
	SizeBytes    int64   `json:"sizeBytes"`
	IsBinary     bool    `json:"isBinary"`
	SHA256       string  `json:"sha256"`
	LineCount    *int    `json:"lineCount"`
	Language     *string `json:"language"`
	ProjectID    *string `json:"projectId"`
}

// ProjectDependency is one declared dependency of a project manifest.
// At most one of Version / VersionSpec is populated; both nil means unspecified.
type ProjectDependency struct {
	Ecosystem          string  `json:"ecosystem"`
	Name               string  `json:"name"`
	Version            *string `json:"version"`
	VersionSpec        *string `json:"versionSpec"`
	Group              *string `json:"group"`
	Scope              *string `json:"scope"`
	SourceManifestPath string  `json:"sourceManifestPath"`
}

// LanguageBreakdown is the per-language share of a file set.
type LanguageBreakdown struct {
	Language  string `json:"language"`
	FileCount int    `json:"fileCount"`
	Lines     int    `json:"lines"`
}

// ProjectMetrics aggregates file statistics for a project or the whole repository.
type ProjectMetrics struct {
	FileCount       int                 `json:"fileCount"`
	TextFileCount   int                 `json:"textFileCount"`
	BinaryFileCount int                 `json:"binaryFileCount"`
	TotalLines      int                 `json:"totalLines"`
	TotalBytes      int64               `json:"totalBytes"`
	Languages       []LanguageBreakdown `json:"languages"`
}

// CountByKey is a stable, sorted replacement for map[string]int in JSON output.
type CountByKey struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// DependencySummary counts dependencies by scope and version precision.
type DependencySummary struct {
	Total               int          `json:"total"`
	ByScope             []CountByKey `json:"byScope"`
	Ecosystems          []CountByKey `json:"ecosystems"`
	ExactVersions       int          `json:"exactVersions"`
	RangeVersions       int          `json:"rangeVersions"`
	UnspecifiedVersions int          `json:"unspecifiedVersions"`
	DependenciesPerKLoc float64      `json:"dependenciesPerKLoc"`
}

// StructuralSignals are flags derived purely from metrics and dependencies.
type StructuralSignals struct {
	IsLegacyRuntime         bool    `json:"isLegacyRuntime"`
	UsesVersionRanges       bool    `json:"usesVersionRanges"`
	HasNoDependencies       bool    `json:"hasNoDependencies"`
	IsHighDependencyDensity bool    `json:"isHighDependencyDensity"`
	IsLargeProject          bool    `json:"isLargeProject"`
	IsSmallProject          bool    `json:"isSmallProject"`
	ManifestParseFailed     bool    `json:"manifestParseFailed"`
	ManifestParseError      *string `json:"manifestParseError"`
}

// RepositoryStructuralSignals extends StructuralSignals with repository-wide counts.
type RepositoryStructuralSignals struct {
	StructuralSignals
	ProjectCount              int  `json:"projectCount"`
	LegacyRuntimeProjectCount int  `json:"legacyRuntimeProjectCount"`
	FailedManifestCount       int  `json:"failedManifestCount"`
	IsMonorepo                bool `json:"isMonorepo"`
}

// ArchitectureSignals describe testing, packaging and delivery shape.
type ArchitectureSignals struct {
	HasTests                bool     `json:"hasTests"`
	TestFileCount           int      `json:"testFileCount"`
	TestFrameworks          []string `json:"testFrameworks"`
	WebFrameworks           []string `json:"webFrameworks"`
	HasDockerfile           bool     `json:"hasDockerfile"`
	HasDockerCompose        bool     `json:"hasDockerCompose"`
	ComposeServiceCount     int      `json:"composeServiceCount"`
	HasCIConfig             bool     `json:"hasCiConfig"`
	CIProviders             []string `json:"ciProviders"`
	HasInfrastructureAsCode bool     `json:"hasInfrastructureAsCode"`
	IsLikelyAPI             bool     `json:"isLikelyApi"`
	IsLikelyLibrary         bool     `json:"isLikelyLibrary"`
	Entrypoints             []string `json:"entrypoints"`
}

// RepositoryArchitectureSignals extends ArchitectureSignals with cross-project facts.
type RepositoryArchitectureSignals struct {
	ArchitectureSignals
	DistinctTestFrameworks []string      `json:"distinctTestFrameworks"`
	DistinctProjectTypes   []ProjectType `json:"distinctProjectTypes"`
	IsPolyglotRepository   bool          `json:"isPolyglotRepository"`
}

// ModernizationSignals is the classification of a project's runtime.
type ModernizationSignals struct {
	ProjectID           string            `json:"projectId"`
	RuntimePlatform     RuntimePlatform   `json:"runtimePlatform"`
	RuntimeGeneration   RuntimeGeneration `json:"runtimeGeneration"`
	FrameworkIdentifier string            `json:"frameworkIdentifier"`
	FrameworkVersion    *string           `json:"frameworkVersion"`
	SupportStatus       SupportStatus     `json:"supportStatus"`
}

// RepositoryProjectNode is a logical sub-project anchored by a manifest.
type RepositoryProjectNode struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	RelativePath         string               `json:"relativePath"`
	ProjectType          ProjectType          `json:"projectType"`
	Framework            *string              `json:"framework"`
	ManifestPath         string               `json:"manifestPath"`
	FilePaths            []string             `json:"filePaths"`
	Metrics              ProjectMetrics       `json:"metrics"`
	Dependencies         []ProjectDependency  `json:"dependencies"`
	DependencySummary    DependencySummary    `json:"dependencySummary"`
	StructuralSignals    StructuralSignals    `json:"structuralSignals"`
	ArchitectureSignals  ArchitectureSignals  `json:"architectureSignals"`
	ModernizationSignals ModernizationSignals `json:"modernizationSignals"`
}

// DetectedTechnology is a runtime, framework or tool proven by a file in the repo.
type DetectedTechnology struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Evidence string `json:"evidence"`
}

// Technology categories.
const (
	TechRuntime        = "runtime"
	TechFramework      = "framework"
	TechTooling        = "tooling"
	TechInfrastructure = "infrastructure"
)

// GraphMetadata identifies the repository snapshot a graph was built from.
type GraphMetadata struct {
	RootPath       string    `json:"rootPath"`
	Name           string    `json:"name"`
	GeneratedAt    time.Time `json:"generatedAt"`
	RepositoryHash string    `json:"repositoryHash"`
	FileCount      int       `json:"fileCount"`
	CommitSHA      *string   `json:"commitSha"`
	RemoteURL      *string   `json:"remoteUrl"`
}

// RepositoryGraph is the full deterministic output of an assessment.
type RepositoryGraph struct {
	Metadata            GraphMetadata                 `json:"metadata"`
	Metrics             ProjectMetrics                `json:"metrics"`
	Files               []RepositoryFileNode          `json:"files"`
	Projects            []RepositoryProjectNode       `json:"projects"`
	Technologies        []DetectedTechnology          `json:"technologies"`
	DependencySummary   DependencySummary             `json:"dependencySummary"`
	StructuralSignals   RepositoryStructuralSignals   `json:"structuralSignals"`
	ArchitectureSignals RepositoryArchitectureSignals `json:"architectureSignals"`
	Modernization       []ModernizationSignals        `json:"modernization"`
}

// Warning records a problem that was recovered locally during an assessment.
type Warning struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Warning kinds.
const (
	WarningFileRead      = "file_read"
	WarningManifestParse = "manifest_parse"
)

// AssessmentSummary is a coarse rollup computed from the graph only.
type AssessmentSummary struct {
	PrimaryLanguage            *string       `json:"primaryLanguage"`
	ProjectTypes               []ProjectType `json:"projectTypes"`
	EolProjectCount            int           `json:"eolProjectCount"`
	NearEolProjectCount        int           `json:"nearEolProjectCount"`
	SupportedProjectCount      int           `json:"supportedProjectCount"`
	UnknownSupportProjectCount int           `json:"unknownSupportProjectCount"`
}

// RepoAssessmentResult is what the assessment service hands back to callers.
type RepoAssessmentResult struct {
	Graph    *RepositoryGraph  `json:"graph"`
	Summary  AssessmentSummary `json:"summary"`
	Warnings []Warning         `json:"warnings"`
}
