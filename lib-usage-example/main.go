package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/sw33tLie/partscope/pkg/cache"
	"github.com/sw33tLie/partscope/pkg/catalog"
	"github.com/sw33tLie/partscope/pkg/catalog/dev"
	"github.com/sw33tLie/partscope/pkg/component"
	"github.com/sw33tLie/partscope/pkg/recommend"
)

func main() {
	// Usage: go run *.go -category mosfet -voltage 400 -current 10

	categoryFlag := flag.String("category", "mosfet", "Component category")
	voltageFlag := flag.Float64("voltage", 400, "Required voltage (V)")
	currentFlag := flag.Float64("current", 10, "Required current (A)")

	// Parse the command-line flags
	flag.Parse()

	category, err := component.ParseCategory(*categoryFlag)
	if err != nil {
		fmt.Println(err)
		return
	}

	// Real catalogs (digikey, mouser, lcsc) plug in the same way
	svc, err := recommend.New(recommend.Config{
		Catalogs: []catalog.Catalog{dev.New(dev.Options{Name: "mouser"}), dev.New(dev.Options{Name: "digikey"})},
		Cache:    cache.NewMemory(100),
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	res, err := svc.Recommend(context.Background(), recommend.Query{
		Requirements: component.NewRequirements(category, *voltageFlag, *currentFlag),
		Top:          5,
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, s := range res.Scores {
		fmt.Printf("%d. %s %s %.3f\n", s.Rank, s.Component.Vendor, s.Component.PartNumber, s.Composite)
	}
}
