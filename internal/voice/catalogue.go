package voice

import (
	"fmt"
	"strings"
)

type detail struct {
	key, value string
}

type visaOption struct {
	name    string
	details []detail
}

var visaOptions = []visaOption{
	{"Working Holiday", []detail{
		{"age", "18-30 years"},
		{"duration", "Up to 2 years"},
		{"work", "Allowed"},
		{"cost", "£295"},
		{"processing", "3-4 weeks"},
	}},
	{"Skilled Worker", []detail{
		{"requirement", "Job offer required"},
		{"duration", "Up to 5 years"},
		{"path to residency", "Yes"},
		{"cost", "£1,235"},
		{"processing", "3-8 weeks"},
	}},
	{"Student", []detail{
		{"requirement", "University acceptance"},
		{"duration", "Course length + 4 months"},
		{"work", "20 hours/week"},
		{"cost", "£490"},
		{"processing", "3 weeks"},
	}},
	{"Investor", []detail{
		{"investment", "£2 million minimum"},
		{"duration", "3 years + 4 months"},
		{"path to residency", "Fast track available"},
		{"cost", "£3,250"},
		{"processing", "3-8 weeks"},
	}},
}

var visaDocuments = []string{
	"Valid passport (6+ months validity)",
	"Proof of funds (bank statements)",
	"Police clearance certificate",
	"Medical examination results",
	"Biometric information",
	"Employment/sponsor documents",
	"Accommodation proof",
}

var visaProcess = []string{
	"Gather all required documents",
	"Complete online application",
	"Pay visa fees",
	"Book biometric appointment",
	"Attend visa interview (if required)",
	"Wait for decision",
	"Receive visa decision",
}

var visaCosts = []detail{
	{"Application fee", "£1,235"},
	{"Health surcharge", "£624/year"},
	{"Biometric fee", "£19.20"},
	{"Priority service", "£500 (optional)"},
}

// VisaRequirements answers from a static catalogue. Without a visa type it lists the common
// routes; with one it walks through documents, steps and fees.
func VisaRequirements(originCountry, destinationCountry, visaType string) string {
	var b strings.Builder
	if visaType == "" {
		fmt.Fprintf(&b, "As a %s citizen moving to %s, you have several visa options:\n\n", originCountry, destinationCountry)
		names := make([]string, 0, len(visaOptions))
		for i, v := range visaOptions {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "**%s Visa**:", v.name)
			for _, d := range v.details {
				fmt.Fprintf(&b, "\n  - %s: %s", d.key, d.value)
			}
			names = append(names, v.name)
		}
		fmt.Fprintf(&b, "\n\nYou have visa options like %s, and %s as a %s citizen. "+
			"Would you like me to explain more details or send you the related requirements in email as a PDF?",
			strings.Join(names[:len(names)-1], ", "), names[len(names)-1], originCountry)
		return b.String()
	}

	fmt.Fprintf(&b, "For the %s visa from %s to %s:\n\n", visaType, originCountry, destinationCountry)
	b.WriteString("**Required Documents:**\n")
	for _, d := range visaDocuments {
		fmt.Fprintf(&b, "- %s\n", d)
	}
	b.WriteString("\n**Application Process:**\n")
	for i, step := range visaProcess {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	b.WriteString("\n**Timeline:** 3-8 weeks typically\n\n**Costs Breakdown:**\n")
	for _, c := range visaCosts {
		fmt.Fprintf(&b, "- %s: %s\n", c.key, c.value)
	}
	b.WriteString("\nWould you like me to explain any specific document requirements in more detail?")
	return b.String()
}

type documentGuide struct {
	purpose        string
	where          string
	process        []string
	requirements   []string
	mustInclude    []string
	testsIncluded  []string
	minimumAmounts []detail
	additional     string
	validity       string
	cost           string
	tips           string
}

var documentGuides = map[string]documentGuide{
	"police clearance": {
		purpose: "Proves you have no criminal record",
		where:   "Local police department or national agency",
		process: []string{
			"Apply online or in person at designated office",
			"Provide identification and address history",
			"Submit fingerprints (if required)",
			"Pay processing fee (usually £45-95)",
			"Wait 2-4 weeks for processing",
		},
		validity: "Usually 6 months from issue date",
		tips:     "Apply 2-3 months before visa application as it can take time",
	},
	"bank statement": {
		purpose: "Demonstrates financial stability",
		requirements: []string{
			"Last 6 months of statements",
			"Show minimum balance requirements",
			"Must be stamped by bank or certified",
			"Include all accounts if using multiple",
		},
		minimumAmounts: []detail{
			{"student", "£1,334/month for 9 months"},
			{"skilled_worker", "£1,270 minimum"},
			{"investor", "£2 million available funds"},
		},
		tips: "Maintain consistent balance for 28+ days before application",
	},
	"employment letter": {
		purpose: "Confirms job offer or current employment",
		mustInclude: []string{
			"Company letterhead",
			"Job title and description",
			"Salary details",
			"Start date",
			"Sponsor license number (if applicable)",
			"Signed by authorized person",
		},
		additional: "May need Certificate of Sponsorship (CoS) for UK",
		tips:       "Ensure letter is dated within 30 days of application",
	},
	"medical examination": {
		purpose: "Health screening for visa",
		testsIncluded: []string{
			"Chest X-ray (TB screening)",
			"Blood tests",
			"Physical examination",
			"Vaccination records review",
		},
		where:    "Approved panel physicians only",
		cost:     "£150-500 depending on tests",
		validity: "6 months typically",
		tips:     "Book appointment early as slots fill quickly",
	},
	"academic transcripts": {
		purpose: "Verify educational qualifications",
		requirements: []string{
			"Official sealed transcripts",
			"Degree certificates",
			"English translations if needed",
			"NARIC/ENIC assessment for equivalency",
		},
		additional: "May need apostille or attestation",
		tips:       "Order extra copies as originals may be retained",
	},
}

var defaultDocumentGuide = documentGuide{
	purpose:      "Supporting document for visa application",
	requirements: []string{"Contact embassy for specific requirements"},
	tips:         "Ensure all documents are current and properly certified",
}

// DocumentDetails explains how to obtain a visa supporting document. Unknown document types
// get a generic guide.
func DocumentDetails(documentType, country string) string {
	doc, ok := documentGuides[strings.ToLower(strings.TrimSpace(documentType))]
	if !ok {
		doc = defaultDocumentGuide
	}

	var b strings.Builder
	if country != "" {
		fmt.Fprintf(&b, "**%s for %s**\n\n", strings.ToUpper(documentType), country)
	} else {
		fmt.Fprintf(&b, "**%s**\n\n", strings.ToUpper(documentType))
	}
	fmt.Fprintf(&b, "**Purpose:** %s\n\n", doc.purpose)
	if doc.where != "" {
		fmt.Fprintf(&b, "**Where to obtain:** %s\n\n", doc.where)
	}
	if len(doc.process) > 0 {
		b.WriteString("**Process:**\n")
		for i, step := range doc.process {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		b.WriteString("\n")
	}
	writeList(&b, "Requirements", doc.requirements)
	writeList(&b, "Must include", doc.mustInclude)
	writeList(&b, "Tests included", doc.testsIncluded)
	if len(doc.minimumAmounts) > 0 {
		b.WriteString("**Minimum amounts by visa type:**\n")
		for _, m := range doc.minimumAmounts {
			fmt.Fprintf(&b, "- %s: %s\n", m.key, m.value)
		}
		b.WriteString("\n")
	}
	if doc.additional != "" {
		fmt.Fprintf(&b, "**Also note:** %s\n\n", doc.additional)
	}
	if doc.validity != "" {
		fmt.Fprintf(&b, "**Validity:** %s\n\n", doc.validity)
	}
	if doc.cost != "" {
		fmt.Fprintf(&b, "**Cost:** %s\n\n", doc.cost)
	}
	fmt.Fprintf(&b, "**💡 Pro tip:** %s", doc.tips)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s:**\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}
