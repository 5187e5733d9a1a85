// Package dev is an offline catalog with a fixed part list. It backs demos
// and tests and can be told to fail or stall.
package dev

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sw33tLie/partscope/pkg/catalog"
	"github.com/sw33tLie/partscope/pkg/component"
	"github.com/sw33tLie/partscope/pkg/ratelimit"
)

type Options struct {
	// Name defaults to "dev".
	Name string
	// Parts replaces the built-in list.
	Parts []component.Component
	// Err, when set, is returned by every call.
	Err error
	// Delay is slept before answering, honouring ctx.
	Delay   time.Duration
	Limiter *ratelimit.Bucket
}

type Catalog struct {
	opts  Options
	calls int32
}

func New(opts Options) *Catalog {
	if opts.Name == "" {
		opts.Name = "dev"
	}
	if opts.Parts == nil {
		opts.Parts = Parts(opts.Name)
	}
	return &Catalog{opts: opts}
}

func (c *Catalog) Name() string { return c.opts.Name }

// Calls returns how many searches and lookups reached this catalog.
func (c *Catalog) Calls() int { return int(atomic.LoadInt32(&c.calls)) }

func (c *Catalog) begin(ctx context.Context) error {
	atomic.AddInt32(&c.calls, 1)

	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Acquire(ctx, catalog.DefaultAcquireTimeout); err != nil {
			return err
		}
	}
	if c.opts.Delay > 0 {
		select {
		case <-time.After(c.opts.Delay):
		case <-ctx.Done():
			return catalog.Unavailable(c.Name(), "%v", ctx.Err())
		}
	}
	return c.opts.Err
}

func (c *Catalog) Search(ctx context.Context, req component.Requirements) ([]component.Component, error) {
	if err := c.begin(ctx); err != nil {
		return nil, err
	}
	var out []component.Component
	for _, p := range c.opts.Parts {
		if p.Category == req.Category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Catalog) Lookup(ctx context.Context, partNumber string) (component.Component, error) {
	if err := c.begin(ctx); err != nil {
		return component.Component{}, err
	}
	for _, p := range c.opts.Parts {
		if strings.EqualFold(p.PartNumber, partNumber) {
			return p, nil
		}
	}
	return component.Component{}, fmt.Errorf("%w: %s: %s", catalog.ErrPartNotFound, c.Name(), partNumber)
}

func part(vendor, pn, mfr, price string, stock int, pkg string, spec component.Spec) component.Component {
	return component.Component{
		Vendor:       vendor,
		PartNumber:   pn,
		Manufacturer: mfr,
		Category:     spec.Category(),
		UnitPrice:    decimal.RequireFromString(price),
		Stock:        stock,
		DatasheetURL: "https://datasheets.example.com/" + strings.ToLower(pn) + ".pdf",
		Package:      pkg,
		Spec:         spec,
	}
}

// Parts returns the built-in list tagged with vendor.
func Parts(vendor string) []component.Component {
	return []component.Component{
		part(vendor, "IPW60R070CFD7", "Infineon", "6.42", 412, "TO-247-3",
			component.SwitchSpec{Technology: "mosfet", Polarity: "N-Channel", VoltageMax: 600, CurrentMax: 31, OnResistance: 0.070, GateCharge: 67}),
		part(vendor, "STF13N60M2", "STMicroelectronics", "1.65", 2300, "TO-220FP",
			component.SwitchSpec{Technology: "mosfet", Polarity: "N-Channel", VoltageMax: 650, CurrentMax: 11, OnResistance: 0.380, GateCharge: 17}),
		part(vendor, "SCT3080KL", "ROHM", "14.90", 0, "TO-247N",
			component.SwitchSpec{Technology: "mosfet", Polarity: "N-Channel", VoltageMax: 1200, CurrentMax: 31, OnResistance: 0.080, GateCharge: 60}),
		part(vendor, "IKW40N120T2", "Infineon", "7.85", 180, "TO-247-3",
			component.SwitchSpec{Technology: "igbt", VoltageMax: 1200, CurrentMax: 40, SaturationVoltage: 1.75, GateCharge: 203}),
		part(vendor, "IRFZ44N", "Infineon", "0.98", 8400, "TO-220AB",
			component.SwitchSpec{Technology: "mosfet", Polarity: "N-Channel", VoltageMax: 55, CurrentMax: 49, OnResistance: 0.0175, GateCharge: 63}),

		part(vendor, "STPS20H100CT", "STMicroelectronics", "1.52", 2315, "TO-220AB",
			component.DiodeSpec{Type: "Schottky", ReverseVoltage: 100, ForwardCurrent: 20, ForwardVoltage: 0.64}),
		part(vendor, "MUR860G", "onsemi", "0.88", 5100, "TO-220-2",
			component.DiodeSpec{Type: "Ultrafast", ReverseVoltage: 600, ForwardCurrent: 8, ForwardVoltage: 1.5, ReverseRecoveryNs: 60}),
		part(vendor, "C3D10060A", "Wolfspeed", "3.10", 950, "TO-220-2",
			component.DiodeSpec{Type: "SiC Schottky", ReverseVoltage: 600, ForwardCurrent: 14, ForwardVoltage: 1.5}),
		part(vendor, "1N5822", "Vishay", "0.35", 12000, "DO-201AD",
			component.DiodeSpec{Type: "Schottky", ReverseVoltage: 40, ForwardCurrent: 3, ForwardVoltage: 0.525}),

		part(vendor, "EEU-FR1V471", "Panasonic", "0.89", 3100, "Radial",
			component.CapacitorSpec{Capacitance: 470e-6, VoltageRated: 35, ESR: 0.038, RippleCurrent: 1.6, Tolerance: 20, Dielectric: "Aluminum"}),
		part(vendor, "UHE1H221MPD", "Nichicon", "0.52", 7800, "Radial",
			component.CapacitorSpec{Capacitance: 220e-6, VoltageRated: 50, ESR: 0.087, RippleCurrent: 0.95, Tolerance: 20, Dielectric: "Aluminum"}),
		part(vendor, "B32776G4106K", "TDK", "4.20", 640, "Radial",
			component.CapacitorSpec{Capacitance: 10e-6, VoltageRated: 450, ESR: 0.006, RippleCurrent: 7.2, Tolerance: 10, Dielectric: "Film"}),

		part(vendor, "SRP1265A-470M", "Bourns", "1.12", 2200, "SMD",
			component.InductorSpec{Inductance: 47e-6, DCResistance: 0.043, SaturationCurrent: 9.5, RatedCurrent: 7, CoreMaterial: "Metal Composite"}),
		part(vendor, "7443551470", "Wurth Elektronik", "3.45", 410, "SMD",
			component.InductorSpec{Inductance: 4.7e-6, DCResistance: 0.0036, SaturationCurrent: 30, RatedCurrent: 19, CoreMaterial: "Ferrite"}),
		part(vendor, "2100LL-101-H-RC", "Bourns", "2.80", 0, "Radial",
			component.InductorSpec{Inductance: 100e-6, DCResistance: 0.021, SaturationCurrent: 12, RatedCurrent: 12, CoreMaterial: "Ferrite"}),
	}
}
