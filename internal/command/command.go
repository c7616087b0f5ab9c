// Package command decodes inline-button callback data into typed commands once, at the
// transport boundary. The workflow never sees raw callback strings.
package command

import (
	"errors"
	"fmt"
	"strings"

	"paybot/internal/models"
)

var ErrUnknown = errors.New("unknown callback data")

// Command is a closed set: only types in this package implement it.
type Command interface {
	command()
}

type ChoosePlan struct{ Plan models.Plan }

type ChooseMethod struct{ Method models.Method }

type ShowHelp struct{}

type Back struct{}

type Adjudicate struct {
	RequestID string
	Decision  models.Decision
}

type AdjudicateNegotiation struct {
	NegotiationID string
	Decision      models.Decision
}

type Topic string

const (
	TopicPayment   Topic = "payment"
	TopicTech      Topic = "tech"
	TopicOther     Topic = "other"
	TopicNegotiate Topic = "negotiate"
)

type SupportTopic struct{ Topic Topic }

type NegotiationPlan struct{ Plan models.Plan }

type NegotiationMethod struct{ Method models.Method }

func (ChoosePlan) command()            {}
func (ChooseMethod) command()          {}
func (ShowHelp) command()              {}
func (Back) command()                  {}
func (Adjudicate) command()            {}
func (AdjudicateNegotiation) command() {}
func (SupportTopic) command()          {}
func (NegotiationPlan) command()       {}
func (NegotiationMethod) command()     {}

const (
	planPrefix       = "plan_"
	payPrefix        = "pay_"
	helpData         = "plan_help"
	backData         = "back_start"
	approvePrefix    = "approve:"
	declinePrefix    = "decline:"
	negApprovePrefix = "neg_approve:"
	negDeclinePrefix = "neg_decline:"
	topicPrefix      = "h_"
	negPlanPrefix    = "neg_service_"
	negMethodPrefix  = "neg_method_"
)

// Parse decodes callback data produced by Encode.
func Parse(data string) (Command, error) {
	switch {
	case data == helpData:
		return ShowHelp{}, nil
	case data == backData:
		return Back{}, nil
	case strings.HasPrefix(data, planPrefix):
		p, err := models.ParsePlan(strings.TrimPrefix(data, planPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
		}
		return ChoosePlan{Plan: p}, nil
	case strings.HasPrefix(data, payPrefix):
		m, err := models.ParseMethod(strings.TrimPrefix(data, payPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
		}
		return ChooseMethod{Method: m}, nil
	case strings.HasPrefix(data, approvePrefix):
		return adjudicate(data, approvePrefix, models.DecisionApprove)
	case strings.HasPrefix(data, declinePrefix):
		return adjudicate(data, declinePrefix, models.DecisionDecline)
	case strings.HasPrefix(data, negApprovePrefix):
		return adjudicateNegotiation(data, negApprovePrefix, models.DecisionApprove)
	case strings.HasPrefix(data, negDeclinePrefix):
		return adjudicateNegotiation(data, negDeclinePrefix, models.DecisionDecline)
	case strings.HasPrefix(data, negPlanPrefix):
		p, err := models.ParsePlan(strings.TrimPrefix(data, negPlanPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
		}
		return NegotiationPlan{Plan: p}, nil
	case strings.HasPrefix(data, negMethodPrefix):
		m, err := models.ParseMethod(strings.TrimPrefix(data, negMethodPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
		}
		return NegotiationMethod{Method: m}, nil
	case strings.HasPrefix(data, topicPrefix):
		switch t := Topic(strings.TrimPrefix(data, topicPrefix)); t {
		case TopicPayment, TopicTech, TopicOther, TopicNegotiate:
			return SupportTopic{Topic: t}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, data)
}

func adjudicate(data, prefix string, d models.Decision) (Command, error) {
	id := strings.TrimPrefix(data, prefix)
	if id == "" {
		return nil, fmt.Errorf("%w: empty request id", ErrUnknown)
	}
	return Adjudicate{RequestID: id, Decision: d}, nil
}

func adjudicateNegotiation(data, prefix string, d models.Decision) (Command, error) {
	id := strings.TrimPrefix(data, prefix)
	if id == "" {
		return nil, fmt.Errorf("%w: empty negotiation id", ErrUnknown)
	}
	return AdjudicateNegotiation{NegotiationID: id, Decision: d}, nil
}

// Encode renders a command as callback data. Telegram caps callback data at 64 bytes.
func Encode(c Command) string {
	switch c := c.(type) {
	case ChoosePlan:
		return planPrefix + string(c.Plan)
	case ChooseMethod:
		return payPrefix + string(c.Method)
	case ShowHelp:
		return helpData
	case Back:
		return backData
	case Adjudicate:
		if c.Decision == models.DecisionApprove {
			return approvePrefix + c.RequestID
		}
		return declinePrefix + c.RequestID
	case AdjudicateNegotiation:
		if c.Decision == models.DecisionApprove {
			return negApprovePrefix + c.NegotiationID
		}
		return negDeclinePrefix + c.NegotiationID
	case SupportTopic:
		return topicPrefix + string(c.Topic)
	case NegotiationPlan:
		return negPlanPrefix + string(c.Plan)
	case NegotiationMethod:
		return negMethodPrefix + string(c.Method)
	}
	return ""
}
