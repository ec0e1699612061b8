// Package preferences persists per-location carrier visibility settings
// and carries the carrier catalogs those settings range over.
package preferences

import (
	"github.com/life-quote-server/internal/domain"
)

// CarrierGroup is a display grouping of related carrier rate tables, the
// way agents see them in the preference editor.
type CarrierGroup struct {
	Name     string   `json:"name"`
	Carriers []string `json:"carriers"`
}

// TermCarrierGroups is the catalog of Term rate tables.
var TermCarrierGroups = []CarrierGroup{
	{
		Name: "American Amicable",
		Carriers: []string{
			"American Amicable (Easy Term)",
			"American Amicable (Home Certainty)",
			"American Amicable (Home Protector)",
			"American Amicable (Pioneer Security)",
			"American Amicable (Safecare Term)",
			"American Amicable (Survivor Protector)",
			"American Amicable (Term Made Simple)",
		},
	},
	{
		Name: "Americo",
		Carriers: []string{
			"Americo (Continuation 10)",
			"Americo (Continuation 25)",
			"Americo (HMS)",
			"Americo (Payment Protector Continuation)",
			"Americo (Payment Protector)",
		},
	},
	{
		Name: "Foresters",
		Carriers: []string{
			"Foresters (Strong Foundation)",
			"Foresters (Your Term Medical)",
			"Foresters (Your Term)",
		},
	},
	{
		Name: "Other",
		Carriers: []string{
			"GTL (Turbo Term)",
			"InstaBrain (Term)",
			"John Hancock (Simple Term with Vitality 2023)",
			"Kansas City Life",
			"Mutual of Omaha (Term Life Express)",
			"National Life Group (LSW Level Term)",
			"Primerica (Term Now)",
			"Protective (Classic Choice Term)",
			"UHL (Simple Term)",
		},
	},
	{
		Name: "Quoting Only",
		Carriers: []string{
			"Royal Neighbors (Jet Term)",
			"Transamerica (Trendsetter LB 2017)",
			"Transamerica (Trendsetter Super 2021)",
		},
	},
}

// FEXCarrierGroups is the catalog of Final Expense rate tables.
var FEXCarrierGroups = []CarrierGroup{
	{
		Name:     "AIG",
		Carriers: []string{"AIG (GIWL)", "AIG (SIWL)"},
	},
	{
		Name: "Aetna",
		Carriers: []string{
			"Aetna (Protection Series)",
			"Aetna (Protection Series) (MT)",
		},
	},
	{
		Name: "American Amicable",
		Carriers: []string{
			"American Amicable (American Guardian)",
			"American Amicable (American Legacy)",
			"American Amicable (Dignity Solutions)",
			"American Amicable (Family Choice)",
			"American Amicable (Family Legacy)",
			"American Amicable (Family Protector Family Plan)",
			"American Amicable (Family Protector Legacy Plan)",
			"American Amicable (Family Solution)",
			"American Amicable (Golden Solution)",
			"American Amicable (Innovative Choice)",
			"American Amicable (Innovative Solutions)",
			"American Amicable (Peace of Mind Family Plan)",
			"American Amicable (Peace of Mind NC)",
			"American Amicable (Peace of Mind)",
			"American Amicable (Platinum Solution Family Plan)",
			"American Amicable (Platinum Solution Legacy Plan)",
			"American Amicable (Senior Choice)",
		},
	},
	{
		Name: "American Home Life",
		Carriers: []string{
			"American Home Life (GuideStar 0-44)",
			"American Home Life (GuideStar 45+)",
			"American Home Life (Patriot Series)",
		},
	},
	{
		Name: "Baltimore Life",
		Carriers: []string{
			"Baltimore Life (Silver Guard)",
			"Baltimore Life (aPriority 0-49)",
			"Baltimore Life (aPriority 50+)",
			"Baltimore Life (iProvide 45-69)",
			"Baltimore Life (iProvide 70+)",
		},
	},
	{
		Name: "Bankers Fidelity",
		Carriers: []string{
			"Bankers Fidelity Final Expense",
			"Bankers Fidelity Final Expense (MT)",
		},
	},
	{
		Name: "CVS",
		Carriers: []string{
			"CVS (Aetna Accendo)",
			"CVS (Aetna Accendo) (MT)",
		},
	},
	{
		Name: "Occidental Life",
		Carriers: []string{
			"Occidental Life (American Guardian)",
			"Occidental Life (American Legacy)",
			"Occidental Life (Dignity Solutions)",
			"Occidental Life (Family Choice)",
			"Occidental Life (Family Legacy)",
			"Occidental Life (Family Protector Family Plan)",
			"Occidental Life (Family Protector Legacy Plan)",
			"Occidental Life (Family Solution)",
			"Occidental Life (Golden Solution)",
			"Occidental Life (Innovative Choice)",
			"Occidental Life (Innovative Solutions)",
			"Occidental Life (Peace of Mind Family Plan)",
			"Occidental Life (Peace of Mind NC)",
			"Occidental Life (Peace of Mind)",
			"Occidental Life (Platinum Solution Family Plan)",
			"Occidental Life (Platinum Solution Legacy Plan)",
			"Occidental Life (Senior Choice)",
		},
	},
	{
		Name: "Royal Arcanum",
		Carriers: []string{
			"Royal Arcanum (Graded Benefit)",
			"Royal Arcanum (SIWL)",
			"Royal Arcanum (Whole Life)",
		},
	},
	{
		Name: "Royal Neighbors",
		Carriers: []string{
			"Royal Neighbors (Ensured Legacy)",
			"Royal Neighbors (Jet Whole Life)",
		},
	},
	{
		Name: "Transamerica",
		Carriers: []string{
			"Transamerica (Express)",
			"Transamerica (Solutions)",
		},
	},
	{
		Name: "Other",
		Carriers: []string{
			"Aflac (Final Expense)",
			"Americo",
			"Better Life",
			"Catholic Financial (Graded Whole Life)",
			"Christian Fidelity",
			"Cica Life (Superior Choice)",
			"Cincinnati Equitable",
			"Elco (Silver Eagle)",
			"Family Benefit Life",
			"Fidelity Life (RAPIDecision Guaranteed Issue)",
			"First Guaranty",
			"Foresters (PlanRight)",
			"GPM",
			"Gerber",
			"Guarantee Trust Life",
			"Illinois Mutual (Path Protector Plus)",
			"KSKJ",
			"LCBA (Loyal Christian Benefit Association)",
			"Lafayette Life",
			"Liberty Bankers",
			"Lifeshield",
			"Lincoln Heritage",
			"Mutual of Omaha (Living Promise)",
			"Oxford",
			"Pekin (Final Expense)",
			"Polish Falcons",
			"SBLI (Living Legacy)",
			"Security National (Loyalty Plan)",
			"Senior Life (Platinum Protection)",
			"Sentinel",
			"Standard Life",
			"Trinity Life",
			"UHL",
		},
	},
	{
		Name:     "Quoting Only",
		Carriers: []string{"Mountain Life"},
	},
}

// GroupsFor returns the catalog for a coverage line.
func GroupsFor(coverage domain.CoverageType) []CarrierGroup {
	switch coverage {
	case domain.TERM:
		return TermCarrierGroups
	case domain.FEX:
		return FEXCarrierGroups
	default:
		return nil
	}
}

// AllCarriers flattens a catalog into rate-table names.
func AllCarriers(groups []CarrierGroup) []string {
	var names []string
	for _, g := range groups {
		names = append(names, g.Carriers...)
	}
	return names
}

// DefaultPreferences builds the all-visible preference document for a
// location. A carrier an agent has never touched defaults to shown.
func DefaultPreferences(locationID string) *domain.CarrierPreferences {
	prefs := &domain.CarrierPreferences{
		LocationID: locationID,
		Term:       make(domain.PreferenceMask),
		FEX:        make(domain.PreferenceMask),
	}
	for _, name := range AllCarriers(TermCarrierGroups) {
		prefs.Term[name] = true
	}
	for _, name := range AllCarriers(FEXCarrierGroups) {
		prefs.FEX[name] = true
	}
	return prefs
}
