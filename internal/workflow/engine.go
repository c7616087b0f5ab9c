// Package workflow drives the sale of channel access: the per-buyer conversation, proof
// submission, reviewer adjudication, credential issuance, price negotiation and the
// operator commands. Transports call Engine methods with typed arguments and receive
// typed results; outbound messages go through Notifier.
package workflow

import (
	"context"
	"sync"
	"time"

	"paybot/internal/catalog"
	"paybot/internal/ledger"
	"paybot/internal/models"
	"paybot/pkg/logger"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks paybot/internal/workflow Notifier,Provisioner,Persister

// Notifier delivers outbound messages. Errors are logged by the engine and never change
// workflow state.
type Notifier interface {
	ShowPaymentInstructions(ctx context.Context, buyer models.BuyerID, ins models.Instructions) error
	ForwardEvidenceToReviewer(ctx context.Context, req models.PaymentRequest, summary string) error
	ForwardNegotiationToReviewer(ctx context.Context, n models.NegotiationRequest, summary string) error
	NotifyBuyer(ctx context.Context, surface models.Surface, buyer models.BuyerID, text string) error
	DeliverHandoffLink(ctx context.Context, buyer models.BuyerID, token string, offer models.Offer) error
}

// Provisioner mints a single-use access reference for one buyer and one channel.
type Provisioner interface {
	IssueCredential(ctx context.Context, resource models.Resource, channelID int64, buyer models.BuyerID) (string, error)
}

// Persister stores the latest snapshot blob.
type Persister interface {
	Save(ctx context.Context, blob []byte) error
}

const DefaultProofWindow = 30 * time.Minute

type Options struct {
	ReviewerID     models.BuyerID
	SupportContact string
	HandoffSecret  []byte

	// Location sets day boundaries for income reports.
	Location    *time.Location
	ProofWindow time.Duration
	Now         func() time.Time

	// BroadcastInterval spaces out broadcast messages to stay under Telegram rate limits.
	BroadcastInterval time.Duration
}

type Engine struct {
	catalog     *catalog.Catalog
	ledger      *ledger.Ledger
	notifier    Notifier
	provisioner Provisioner
	persister   Persister
	logger      *logger.Logger
	opts        Options

	convMu        sync.Mutex
	conversations map[models.BuyerID]*models.ConversationState

	draftMu sync.Mutex
	drafts  map[models.BuyerID]*negotiationDraft

	grantMu   sync.Mutex
	persistMu sync.Mutex
}

func New(
	cat *catalog.Catalog,
	led *ledger.Ledger,
	notifier Notifier,
	provisioner Provisioner,
	persister Persister,
	log *logger.Logger,
	opts Options,
) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ProofWindow <= 0 {
		opts.ProofWindow = DefaultProofWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		catalog:       cat,
		ledger:        led,
		notifier:      notifier,
		provisioner:   provisioner,
		persister:     persister,
		logger:        log.Named("workflow"),
		opts:          opts,
		conversations: make(map[models.BuyerID]*models.ConversationState),
		drafts:        make(map[models.BuyerID]*negotiationDraft),
	}
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

func (e *Engine) ReviewerID() models.BuyerID {
	return e.opts.ReviewerID
}

func (e *Engine) SupportContact() string {
	return e.opts.SupportContact
}

func (e *Engine) IsReviewer(actor models.BuyerID) bool {
	return e.opts.ReviewerID != 0 && actor == e.opts.ReviewerID
}

func (e *Engine) now() time.Time {
	return e.opts.Now()
}

// Register records a buyer seen on either surface.
func (e *Engine) Register(ctx context.Context, buyer models.Buyer) {
	if e.ledger.AddBuyer(buyer) {
		e.logger.Infow("new buyer", "buyer_id", buyer.ID, "username", buyer.Username)
		e.persist(ctx)
	}
}

// persist writes the whole snapshot. Saves are serialized so an older snapshot never
// overwrites a newer one.
func (e *Engine) persist(ctx context.Context) {
	if e.persister == nil {
		return
	}
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	settings := e.catalog.Settings()
	blob, err := e.ledger.Snapshot(&settings)
	if err != nil {
		e.logger.Errorw("failed to encode snapshot", "error", err)
		return
	}
	if err := e.persister.Save(ctx, blob); err != nil {
		e.logger.Errorw("failed to save snapshot", "error", err)
	}
}

func (e *Engine) notify(ctx context.Context, surface models.Surface, buyer models.BuyerID, text string) {
	if err := e.notifier.NotifyBuyer(ctx, surface, buyer, text); err != nil {
		e.logger.Warnw("failed to notify buyer", "buyer_id", buyer, "surface", surface, "error", err)
	}
}
