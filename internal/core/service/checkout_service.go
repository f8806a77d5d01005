package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/market-checkout/internal/core/domain"
	"github.com/rl1809/market-checkout/internal/port"
)

// finalizeTimeout bounds the bookkeeping after placement, which runs
// detached from the caller's cancellation.
const finalizeTimeout = 5 * time.Second

var (
	ErrDuplicateCheckout = errors.New("checkout already in progress for this cart")
	ErrPartialCheckout   = errors.New("checkout partially placed")
	ErrCheckoutFailed    = errors.New("checkout failed")
)

type CheckoutConfig struct {
	// CallTimeout bounds every single order placement call.
	CallTimeout time.Duration
	// MaxParallel limits concurrent placement calls, 0 means one per line.
	MaxParallel int
	// AllowUnknownLocation sends (0,0) when the device location is
	// unavailable instead of refusing a delivered checkout.
	AllowUnknownLocation bool
}

// CheckoutService places one order per cart line and reports how many of
// them went through. There is no compensation for lines placed before a
// sibling line failed.
type CheckoutService struct {
	api      port.MarketplaceAPI
	session  *SessionService
	cart     *CartService
	guard    port.CheckoutGuard
	journal  port.CheckoutJournal
	events   port.EventPublisher
	location port.LocationProvider
	cfg      CheckoutConfig
	logger   *zap.Logger

	mu    sync.RWMutex
	state domain.ViewState[domain.CheckoutOutcome]
	last  *domain.CheckoutOutcome
}

func NewCheckoutService(
	api port.MarketplaceAPI,
	session *SessionService,
	cart *CartService,
	guard port.CheckoutGuard,
	journal port.CheckoutJournal,
	events port.EventPublisher,
	location port.LocationProvider,
	cfg CheckoutConfig,
	logger *zap.Logger,
) *CheckoutService {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &CheckoutService{
		api:      api,
		session:  session,
		cart:     cart,
		guard:    guard,
		journal:  journal,
		events:   events,
		location: location,
		cfg:      cfg,
		logger:   logger,
		state:    domain.Idle[domain.CheckoutOutcome](),
	}
}

// Checkout validates the request, places every cart line concurrently and
// waits for all of them. A non-nil outcome is returned whenever placement
// started; the error is ErrPartialCheckout or ErrCheckoutFailed unless all
// lines were placed.
func (s *CheckoutService) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutOutcome, error) {
	sess := s.session.Current()
	if !sess.Authenticated() {
		return nil, domain.ErrNotLoggedIn
	}

	cart := s.cart.Snapshot()
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}
	if s.cart.IsStale() {
		return nil, domain.ErrStaleCart
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	promoClaimed := sess.IsPromoClaimed()
	totals := domain.ComputeTotals(cart.Subtotal(), req.ShippingMode, req.CourierFee(), promoClaimed)
	outcome := domain.NewCheckoutOutcome(uuid.NewString(), sess.UserID, req.ShippingMode, cart.Lines, totals)

	if req.ShippingMode == domain.ShippingDelivered {
		loc, err := s.location.CurrentLocation(ctx)
		if err != nil {
			if !s.cfg.AllowUnknownLocation {
				return nil, fmt.Errorf("resolve location: %w", err)
			}
			s.logger.Warn("device location unavailable, sending (0,0)",
				zap.String("checkout_id", outcome.ID),
				zap.Error(err))
			loc = domain.Location{}
			outcome.LocationFallback = true
		}
		outcome.Location = loc
	}

	guardKey := fmt.Sprintf("checkout:%s:%016x", sess.UserID, cart.Fingerprint())
	ok, err := s.guard.Acquire(ctx, guardKey, outcome.ID)
	if err != nil {
		return nil, fmt.Errorf("acquire checkout guard: %w", err)
	}
	if !ok {
		return nil, ErrDuplicateCheckout
	}

	if err := s.journal.BeginCheckout(ctx, outcome); err != nil {
		s.releaseGuard(context.WithoutCancel(ctx), guardKey, outcome.ID)
		return nil, fmt.Errorf("begin checkout: %w", err)
	}

	s.setState(domain.Loading[domain.CheckoutOutcome](), nil)
	s.logger.Info("checkout started",
		zap.String("checkout_id", outcome.ID),
		zap.String("user_id", sess.UserID),
		zap.Int("lines", len(outcome.Lines)),
		zap.Int64("grand_total", totals.GrandTotal),
		zap.Bool("promo", promoClaimed))

	s.placeLines(ctx, sess.Token, req, &outcome)
	outcome.Finalize()

	finCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if err := s.journal.FinishCheckout(finCtx, outcome); err != nil {
		s.logger.Error("finish checkout journal failed",
			zap.String("checkout_id", outcome.ID),
			zap.Error(err))
	}

	switch outcome.Status {
	case domain.CheckoutStatusSucceeded:
		if promoClaimed {
			// A failure here leaves the promo claimed although already spent.
			if err := s.session.MarkPromoUsed(finCtx); err != nil {
				s.logger.Error("mark promo used failed",
					zap.String("checkout_id", outcome.ID),
					zap.Error(err))
			}
		}
		s.cart.MarkStale()
	case domain.CheckoutStatusPartial:
		s.cart.MarkStale()
	default:
		s.releaseGuard(finCtx, guardKey, outcome.ID)
	}

	if err := s.events.PublishCheckout(finCtx, outcome); err != nil {
		s.logger.Warn("publish checkout event failed",
			zap.String("checkout_id", outcome.ID),
			zap.Error(err))
	}

	s.logger.Info("checkout finished",
		zap.String("checkout_id", outcome.ID),
		zap.String("status", string(outcome.Status)),
		zap.Int("placed", outcome.Placed),
		zap.Int("total", len(outcome.Lines)))

	switch outcome.Status {
	case domain.CheckoutStatusSucceeded:
		s.setState(domain.Success(outcome), &outcome)
		return &outcome, nil
	case domain.CheckoutStatusPartial:
		s.setState(domain.Failure[domain.CheckoutOutcome](outcome.Summary()), &outcome)
		return &outcome, fmt.Errorf("%w: %s", ErrPartialCheckout, outcome.Summary())
	default:
		s.setState(domain.Failure[domain.CheckoutOutcome](outcome.FirstFailure()), &outcome)
		return &outcome, fmt.Errorf("%w: %s", ErrCheckoutFailed, outcome.FirstFailure())
	}
}

// placeLines dispatches one placement per line and returns once every call
// has either answered or timed out. Each goroutine owns one slot of
// outcome.Lines. Placement follows the caller's ctx, line journaling does not.
func (s *CheckoutService) placeLines(ctx context.Context, token string, req domain.CheckoutRequest, outcome *domain.CheckoutOutcome) {
	var g errgroup.Group
	if s.cfg.MaxParallel > 0 {
		g.SetLimit(s.cfg.MaxParallel)
	}

	recordCtx := context.WithoutCancel(ctx)
	for i := range outcome.Lines {
		line := &outcome.Lines[i]
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
			defer cancel()

			err := s.api.PlaceOrder(callCtx, domain.PlaceOrderRequest{
				Token:         token,
				ItemID:        line.ItemID,
				Quantity:      line.Quantity,
				PaymentMethod: req.PaymentMethod,
				Address:       req.Address,
				LineSubtotal:  line.Subtotal,
				GrandTotal:    outcome.Totals.GrandTotal,
				ShippingMode:  req.ShippingMode,
				Lat:           outcome.Location.Lat,
				Lng:           outcome.Location.Lng,
			})
			if err != nil {
				line.Status = domain.LineStatusFailed
				line.Reason = domain.ErrorMessage(err)
				s.logger.Warn("place order failed",
					zap.String("checkout_id", outcome.ID),
					zap.String("line_id", line.LineID),
					zap.Error(err))
			} else {
				line.Status = domain.LineStatusSucceeded
			}

			if err := s.journal.RecordLine(recordCtx, outcome.ID, *line); err != nil {
				s.logger.Error("record checkout line failed",
					zap.String("checkout_id", outcome.ID),
					zap.String("line_id", line.LineID),
					zap.Error(err))
			}
			return nil
		})
	}

	_ = g.Wait()
}

// Get returns a recorded checkout attempt.
func (s *CheckoutService) Get(ctx context.Context, checkoutID string) (*domain.CheckoutOutcome, error) {
	outcome, err := s.journal.GetCheckout(ctx, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("get checkout: %w", err)
	}
	return outcome, nil
}

func (s *CheckoutService) State() domain.ViewState[domain.CheckoutOutcome] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastOutcome is the result of the most recent checkout, including partial
// and failed ones.
func (s *CheckoutService) LastOutcome() *domain.CheckoutOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *CheckoutService) setState(state domain.ViewState[domain.CheckoutOutcome], outcome *domain.CheckoutOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if outcome != nil {
		o := *outcome
		o.Lines = append([]domain.LineOutcome(nil), outcome.Lines...)
		s.last = &o
	}
}

func (s *CheckoutService) releaseGuard(ctx context.Context, key, owner string) {
	if err := s.guard.Release(ctx, key, owner); err != nil {
		s.logger.Warn("release checkout guard failed",
			zap.String("key", key),
			zap.Error(err))
	}
}
