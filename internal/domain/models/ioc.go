package models

// IOCType is the match mode of an indicator signature.
type IOCType string

const (
	IOCTypeKeyword IOCType = "keyword"
	IOCTypeRegex   IOCType = "regex"
	IOCTypeSHA256  IOCType = "hash_sha256"
)

// IOCSignature is one row of the active indicator catalogue. Identity is
// (Type, Value); re-ingesting the same identity overwrites the mutable
// fields rather than appending.
type IOCSignature struct {
	Type       IOCType `json:"ioc_type"`
	Value      string  `json:"value"`
	Severity   int     `json:"severity"`   // 1-10
	Confidence float64 `json:"confidence"` // 0-1
	Source     string  `json:"source"`
	Active     bool    `json:"active"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

// IOCFile is the on-disk ingest format consumed by SyncIOCsFromFile.
type IOCFile struct {
	IOCs []IOCSignature `json:"iocs"`
}
