package client

import (
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/movewise/internal/domain"
)

// paramsFlags binds the relocation parameters shared by jobs, search and narrative.
type paramsFlags struct {
	originCity         string
	originCountry      string
	destinationCity    string
	destinationCountry string
	budgetMin          int
	budgetMax          int
	moveMonth          string
	context            string
	scenario           string
}

func (f *paramsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.originCity, "from", "", "Origin city (required)")
	cmd.Flags().StringVar(&f.originCountry, "from-country", "", "Origin country")
	cmd.Flags().StringVar(&f.destinationCity, "to", "", "Destination city (required)")
	cmd.Flags().StringVar(&f.destinationCountry, "to-country", "", "Destination country")
	cmd.Flags().IntVar(&f.budgetMin, "budget-min", 0, "Lower budget bound")
	cmd.Flags().IntVar(&f.budgetMax, "budget-max", 0, "Upper budget bound")
	cmd.Flags().StringVar(&f.moveMonth, "month", "", "Planned move month, e.g. 2026-09")
	cmd.Flags().StringVarP(&f.context, "context", "c", "", "Free-text situation, e.g. \"moving with two kids and a dog\"")
	cmd.Flags().StringVarP(&f.scenario, "scenario", "s", string(domain.ScenarioBalanced), "cheapest, fastest, balanced or luxury")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func (f *paramsFlags) params() domain.SearchParams {
	p := domain.SearchParams{
		OriginCity:         f.originCity,
		OriginCountry:      f.originCountry,
		DestinationCity:    f.destinationCity,
		DestinationCountry: f.destinationCountry,
		MoveMonth:          f.moveMonth,
		Context:            f.context,
		Scenario:           domain.Scenario(f.scenario),
	}
	if f.budgetMin > 0 {
		v := f.budgetMin
		p.BudgetMin = &v
	}
	if f.budgetMax > 0 {
		v := f.budgetMax
		p.BudgetMax = &v
	}
	return p
}
