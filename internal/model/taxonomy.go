package model

// MisconceptionID tags a wrong answer with one of the fixed error
// categories. The taxonomy is closed: diagnosis output referencing any
// other id is coerced to a per-domain default.
type MisconceptionID string

const (
	MisconceptionSRM          MisconceptionID = "SRM"           // shared responsibility confusion
	MisconceptionIDAM         MisconceptionID = "IDAM"          // identity and access confusion
	MisconceptionRegion       MisconceptionID = "REGION"        // region/zone topology confusion
	MisconceptionPricing      MisconceptionID = "PRICING"       // billing and pricing confusion
	MisconceptionGov          MisconceptionID = "GOV"           // governance scope confusion
	MisconceptionSec          MisconceptionID = "SEC"           // security service confusion
	MisconceptionServiceScope MisconceptionID = "SERVICE_SCOPE" // wrong service for the job
	MisconceptionTerms        MisconceptionID = "TERMS"         // terminology mix-up
)

// Taxonomy lists every misconception id, in stable order.
var Taxonomy = []MisconceptionID{
	MisconceptionSRM,
	MisconceptionIDAM,
	MisconceptionRegion,
	MisconceptionPricing,
	MisconceptionGov,
	MisconceptionSec,
	MisconceptionServiceScope,
	MisconceptionTerms,
}

// Domains are the study domains a plan can cover.
var Domains = []string{
	"Cloud Concepts",
	"Azure Architecture",
	"Azure Services",
	"Security",
	"Identity",
	"Governance",
	"Cost Management",
	"SLAs",
}

// domainDefaults maps a question domain to the misconception assumed when
// the model offers none (or an out-of-taxonomy one).
var domainDefaults = map[string]MisconceptionID{
	"Cloud Concepts":     MisconceptionSRM,
	"Azure Architecture": MisconceptionRegion,
	"Azure Services":     MisconceptionServiceScope,
	"Security":           MisconceptionSec,
	"Identity":           MisconceptionIDAM,
	"Governance":         MisconceptionGov,
	"Cost Management":    MisconceptionPricing,
}

// ValidMisconception reports whether id belongs to the taxonomy.
func ValidMisconception(id MisconceptionID) bool {
	for _, m := range Taxonomy {
		if m == id {
			return true
		}
	}
	return false
}

// DefaultMisconceptionForDomain returns the fallback misconception for a
// question domain. Unknown domains map to TERMS.
func DefaultMisconceptionForDomain(domain string) MisconceptionID {
	if id, ok := domainDefaults[domain]; ok {
		return id
	}
	return MisconceptionTerms
}
