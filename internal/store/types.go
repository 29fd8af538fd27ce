// Package store implements the single-file relational persistence engine:
// entries, sessions, user prompts, observations and session summaries, with
// schema migration, FTS5 full-text search, a query compiler over exact,
// prefix, keyword, semantic and hybrid modes, and access-count bookkeeping.
package store

// MemoryType classifies the semantic weight of an Entry.
type MemoryType string

const (
	TypeSemantic   MemoryType = "semantic"
	TypeEpisodic   MemoryType = "episodic"
	TypeProcedural MemoryType = "procedural"
)

// MaxKeyLength is the hard cap on Entry.Key length (ValidationError beyond this).
const MaxKeyLength = 500

// Entry is the primary record: a piece of knowledge addressable both by a
// stable id and by a (namespace, key) pair.
type Entry struct {
	ID             string         `json:"id"`
	Key            string         `json:"key"`
	Content        string         `json:"content"`
	Type           MemoryType     `json:"type"`
	Namespace      string         `json:"namespace"`
	Tags           []string       `json:"tags"`
	Metadata       map[string]any `json:"metadata"`
	Embedding      []float32      `json:"embedding,omitempty"`
	AccessLevel    string         `json:"accessLevel"`
	CreatedAt      int64          `json:"createdAt"`
	UpdatedAt      int64          `json:"updatedAt"`
	LastAccessedAt int64          `json:"lastAccessedAt"`
	Version        int            `json:"version"`
	AccessCount    int            `json:"accessCount"`
	References     []string       `json:"references"`
}

// EntryPatch is a partial update to an Entry; nil fields are left
// untouched. Applied field-wise by Store.Update.
type EntryPatch struct {
	Content     *string
	Type        *MemoryType
	Tags        []string
	TagsSet     bool
	Metadata    map[string]any
	MetadataSet bool
	Embedding   []float32
	AccessLevel *string
	References  []string
	ReferenceSet bool
}

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session is a logical interaction window grouping prompts, observations
// and one eventual summary.
type Session struct {
	ID               int64         `json:"id"`
	SessionID        string        `json:"sessionId"`
	Project          string        `json:"project"`
	Prompt           string        `json:"prompt"`
	StartedAt        int64         `json:"startedAt"`
	EndedAt          *int64        `json:"endedAt,omitempty"`
	ObservationCount int           `json:"observationCount"`
	Summary          *string       `json:"summary,omitempty"`
	Status           SessionStatus `json:"status"`
}

// UserPrompt records one prompt within a session, numbered densely from 1.
type UserPrompt struct {
	ID           int64  `json:"id"`
	SessionID    string `json:"sessionId"`
	PromptNumber int    `json:"promptNumber"`
	PromptText   string `json:"promptText"`
	CreatedAt    int64  `json:"createdAt"`
}

// ObservationType classifies a captured tool invocation.
type ObservationType string

const (
	ObsRead    ObservationType = "read"
	ObsWrite   ObservationType = "write"
	ObsExecute ObservationType = "execute"
	ObsSearch  ObservationType = "search"
	ObsOther   ObservationType = "other"
)

// Observation is a structured record of one captured tool invocation.
type Observation struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"sessionId"`
	Project        string          `json:"project"`
	ToolName       string          `json:"toolName"`
	ToolInput      string          `json:"toolInput"`
	ToolResponse   string          `json:"toolResponse"`
	Cwd            string          `json:"cwd"`
	Timestamp      int64           `json:"timestamp"`
	Type           ObservationType `json:"type"`
	Title          string          `json:"title"`
	Subtitle       string          `json:"subtitle"`
	Narrative      string          `json:"narrative"`
	FilesRead      []string        `json:"filesRead"`
	FilesModified  []string        `json:"filesModified"`
	Facts          []string        `json:"facts"`
	Concepts       []string        `json:"concepts"`
	PromptNumber   *int            `json:"promptNumber,omitempty"`
}

// SessionSummary is the structured rollup produced at session end.
type SessionSummary struct {
	SessionID     string   `json:"sessionId"`
	Project       string   `json:"project"`
	Request       string   `json:"request"`
	Completed     string   `json:"completed"`
	FilesRead     []string `json:"filesRead"`
	FilesModified []string `json:"filesModified"`
	NextSteps     string   `json:"nextSteps"`
	Notes         string   `json:"notes"`
	PromptNumber  int      `json:"promptNumber"`
	CreatedAt     int64    `json:"createdAt"`
}

// QueryType selects the retrieval mode for Query.
type QueryType string

const (
	QueryExact    QueryType = "exact"
	QueryPrefix   QueryType = "prefix"
	QueryKeyword  QueryType = "keyword"
	QuerySemantic QueryType = "semantic"
	QueryHybrid   QueryType = "hybrid"
)

// QueryDescriptor is the input to Store.Query.
type QueryDescriptor struct {
	Type           QueryType
	Key            string
	KeyPrefix      string
	Content        string
	QueryEmbedding []float32
	Namespace      string
	MemoryType     MemoryType
	Tags           []string
	CreatedBefore  int64
	CreatedAfter   int64
	Limit          int
}

// SearchOptions is the input to facade.Service.Search, which queries the
// HNSW index.
type SearchOptions struct {
	K         int
	Threshold float64
	HasThreshold bool
	Namespace string
	MemoryType MemoryType
}

// SearchHit pairs an Entry with its similarity distance/score.
type SearchHit struct {
	Entry    Entry
	Distance float64
}

// Stats is the aggregate view returned by GetStats.
type Stats struct {
	TotalEntries      int            `json:"totalEntries"`
	EntriesByNamespace map[string]int `json:"entriesByNamespace"`
	EntriesByType      map[string]int `json:"entriesByType"`
	MemoryUsage        int64          `json:"memoryUsage"`
}

// HealthStatus is the aggregate health report.
type HealthStatus struct {
	Healthy         bool              `json:"healthy"`
	SubStatuses     map[string]string `json:"subStatuses"`
	IsCjkOptimized  bool              `json:"isCjkOptimized"`
	ActiveTokenizer string            `json:"activeTokenizer"`
}
