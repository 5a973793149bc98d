package model

// ProductRecord is one product row from a store table.
type ProductRecord struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`                    // raw name, "" when missing
	NormName string `json:"normName,omitempty" db:"norm_name"` // precomputed norm_name column (optional)
	Store    string `json:"store" db:"store_table"`            // source table tag
}

// NormalizedName is the derived form of a raw product name.
type NormalizedName struct {
	Text        string   `json:"text"`
	Tokens      []string `json:"tokens"`      // order and duplicates preserved
	Fingerprint string   `json:"fingerprint"` // sorted unique tokens
}

// Cluster is a set of record indices linked by similarity >= threshold.
type Cluster struct {
	Root    int   `json:"root"`
	Members []int `json:"members"` // input order
}

type AliasAssignment struct {
	RecordID      string  `json:"recordId"`
	Store         string  `json:"store"`
	CanonicalName string  `json:"canonicalName"`
	Confidence    float64 `json:"confidence"`
}

const (
	ConfidenceFixed      = "fixed"
	ConfidenceSimilarity = "similarity"

	StrategyBruteForce = "bruteforce"
	StrategyIndexed    = "indexed"
)

type Options struct {
	Threshold      float64 `json:"threshold"`      // pairs with similarity >= threshold are merged
	TargetStore    string  `json:"targetStore"`    // store receiving alias writes
	Confidence     float64 `json:"confidence"`     // value written in fixed mode
	ConfidenceMode string  `json:"confidenceMode"` // fixed | similarity
	Strategy       string  `json:"strategy"`       // bruteforce | indexed
	Workers        int     `json:"workers"`        // scoring goroutines
	WriteWorkers   int     `json:"writeWorkers"`
	WriteRetries   int     `json:"writeRetries"`
	StopOnError    bool    `json:"stopOnError"`
}

func DefaultOptions() Options {
	return Options{
		Threshold:      0.7,
		TargetStore:    "gibbo",
		Confidence:     0.85,
		ConfidenceMode: ConfidenceFixed,
		Strategy:       StrategyIndexed,
		Workers:        1,
		WriteWorkers:   4,
		WriteRetries:   3,
	}
}

// ClusterView is a cluster resolved to names, used in reports.
type ClusterView struct {
	Root          int      `json:"root"`
	CanonicalName string   `json:"canonicalName,omitempty"`
	Resolved      bool     `json:"resolved"`
	Members       []Member `json:"members"`
}

type Member struct {
	ID          string `json:"id"`
	Store       string `json:"store"`
	Name        string `json:"name"`
	Normalized  string `json:"normalized"`
	Fingerprint string `json:"fingerprint"`
}

type Stats struct {
	Records    int `json:"records"`
	Clusters   int `json:"clusters"`
	Singletons int `json:"singletons"`
	Unresolved int `json:"unresolved"`
	Targets    int `json:"targets"`
}

// Result is the outcome of a planning pass over one snapshot.
type Result struct {
	Clusters    []ClusterView     `json:"clusters"`
	Assignments []AliasAssignment `json:"assignments"`
	Stats       Stats             `json:"stats"`
	Opts        Options           `json:"opts"`
}

type WriteFailure struct {
	RecordID string `json:"recordId"`
	Store    string `json:"store"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
}

type PersistReport struct {
	Written  int            `json:"written"`
	Skipped  int            `json:"skipped"` // not attempted: StopOnError or cancelled
	Failures []WriteFailure `json:"failures,omitempty"`
}

// Listing is one scraped product offer to be upserted into a store table.
type Listing struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	URL      string  `json:"url"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

type ImportReport struct {
	Store    string `json:"store"`
	Upserted int    `json:"upserted"`
	Skipped  int    `json:"skipped"` // no name or no url
}
