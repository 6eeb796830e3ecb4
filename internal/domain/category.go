package domain

// Category is one topical bucket of search queries.
type Category string

const (
	CategoryVisaRequirements  Category = "visaRequirements"
	CategoryHousingMarket     Category = "housingMarket"
	CategoryCostOfLiving      Category = "costOfLiving"
	CategoryTransportOptions  Category = "transportOptions"
	CategorySchoolsEducation  Category = "schoolsEducation"
	CategoryPetRelocation     Category = "petRelocation"
	CategoryLocalInsights     Category = "localInsights"
	CategoryWorkOpportunities Category = "workOpportunities"
)

// JobErrorKey is the synthetic errors key for failures outside any category.
const JobErrorKey = "_job"

// CategorySet selects which categories a query plan covers.
type CategorySet string

const (
	// CategorySetStandard is used by search jobs and the lite relocation search.
	CategorySetStandard CategorySet = "standard"
	// CategorySetExtended adds workOpportunities and is used by the analyzed structured search.
	CategorySetExtended CategorySet = "extended"
)

var standardCategories = []Category{
	CategoryVisaRequirements,
	CategoryHousingMarket,
	CategoryCostOfLiving,
	CategoryTransportOptions,
	CategorySchoolsEducation,
	CategoryPetRelocation,
	CategoryLocalInsights,
}

var extendedCategories = []Category{
	CategoryVisaRequirements,
	CategoryHousingMarket,
	CategoryCostOfLiving,
	CategoryTransportOptions,
	CategoryWorkOpportunities,
	CategorySchoolsEducation,
	CategoryPetRelocation,
	CategoryLocalInsights,
}

// Categories returns the ordered categories of the set.
func (s CategorySet) Categories() []Category {
	if s == CategorySetExtended {
		return append([]Category(nil), extendedCategories...)
	}
	return append([]Category(nil), standardCategories...)
}

func (c Category) IsValid() bool {
	for _, known := range extendedCategories {
		if c == known {
			return true
		}
	}
	return false
}

// CategoryOutcome tags a CategoryResult.
type CategoryOutcome string

const (
	CategoryOutcomeOK    CategoryOutcome = "ok"
	CategoryOutcomeError CategoryOutcome = "error"
)

// CategoryResult is the outcome of one category of a fan-out.
// Items is meaningful only for ok results, Message only for error results.
type CategoryResult struct {
	Category Category
	Status   CategoryOutcome
	Items    []SourceRecord
	Message  string
}

func OKResult(c Category, items []SourceRecord) CategoryResult {
	if items == nil {
		items = []SourceRecord{}
	}
	return CategoryResult{Category: c, Status: CategoryOutcomeOK, Items: items}
}

func ErrorResult(c Category, message string) CategoryResult {
	return CategoryResult{Category: c, Status: CategoryOutcomeError, Message: message}
}

func (r CategoryResult) OK() bool {
	return r.Status == CategoryOutcomeOK
}
