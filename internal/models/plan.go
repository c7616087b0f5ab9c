package models

import (
	"fmt"
	"strings"
)

type Plan string

const (
	PlanVIP   Plan = "vip"
	PlanDark  Plan = "dark"
	PlanCombo Plan = "both"
)

// Plans lists every purchasable plan in menu order.
var Plans = []Plan{PlanVIP, PlanDark, PlanCombo}

var planLabels = map[Plan]string{
	PlanVIP:   "VIP Channel",
	PlanDark:  "Dark Channel",
	PlanCombo: "VIP + Dark (Combo 30% OFF)",
}

func (p Plan) Valid() bool {
	_, ok := planLabels[p]
	return ok
}

func (p Plan) Label() string {
	if label, ok := planLabels[p]; ok {
		return label
	}
	return strings.ToUpper(string(p))
}

// Resources returns the channels a plan unlocks.
func (p Plan) Resources() []Resource {
	switch p {
	case PlanVIP:
		return []Resource{ResourceVIP}
	case PlanDark:
		return []Resource{ResourceDark}
	case PlanCombo:
		return []Resource{ResourceVIP, ResourceDark}
	}
	return nil
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return p, nil
}

type Method string

const (
	MethodUPI     Method = "upi"
	MethodRemitly Method = "remitly"
	MethodCrypto  Method = "crypto"
)

// Methods lists payment methods in menu order.
var Methods = []Method{MethodUPI, MethodCrypto, MethodRemitly}

type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
)

func (c Currency) Symbol() string {
	switch c {
	case CurrencyINR:
		return "₹"
	case CurrencyUSD:
		return "$"
	}
	return ""
}

func (m Method) Valid() bool {
	switch m {
	case MethodUPI, MethodRemitly, MethodCrypto:
		return true
	}
	return false
}

// Currency is fixed per method: crypto settles in USD, the rest in INR.
func (m Method) Currency() Currency {
	if m == MethodCrypto {
		return CurrencyUSD
	}
	return CurrencyINR
}

func (m Method) Label() string {
	switch m {
	case MethodUPI:
		return "UPI"
	case MethodRemitly:
		return "Remitly"
	case MethodCrypto:
		return "Crypto"
	}
	return strings.ToUpper(string(m))
}

func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return m, nil
}

type Resource string

const (
	ResourceVIP  Resource = "vip"
	ResourceDark Resource = "dark"
)

var Resources = []Resource{ResourceVIP, ResourceDark}

func (r Resource) Valid() bool {
	return r == ResourceVIP || r == ResourceDark
}

func (r Resource) Label() string {
	switch r {
	case ResourceVIP:
		return "VIP Channel"
	case ResourceDark:
		return "Dark Channel"
	}
	return string(r)
}
