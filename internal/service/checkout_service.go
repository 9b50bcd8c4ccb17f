package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"mathwizard/internal/config"
	"mathwizard/internal/logging"
	"mathwizard/internal/validation"
)

const (
	planName        = "Maths Learning Plan"
	planAmountCents = 1000
	planCurrency    = "usd"
	planInterval    = "month"
)

// CheckoutService creates Stripe checkout sessions for the monthly plan
type CheckoutService struct {
	sc         *client.API
	successURL string
	cancelURL  string
}

// NewCheckoutService creates a checkout service. Without a Stripe key the
// service is disabled and every call returns ErrCheckoutDisabled.
func NewCheckoutService(cfg config.CheckoutConfig) *CheckoutService {
	s := &CheckoutService{
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
	if cfg.StripeSecretKey == "" {
		logging.Warn().Msg("Checkout disabled: STRIPE_SECRET_KEY not configured")
		return s
	}

	sc := &client.API{}
	sc.Init(cfg.StripeSecretKey, nil)
	s.sc = sc
	return s
}

// Enabled reports whether Stripe is configured
func (s *CheckoutService) Enabled() bool {
	return s.sc != nil
}

// CreateSession starts a subscription checkout for email and returns the hosted page URL
func (s *CheckoutService) CreateSession(ctx context.Context, email string) (string, error) {
	if !s.Enabled() {
		return "", ErrCheckoutDisabled
	}
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return "", ValidationError(err.Error())
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(email),
		SuccessURL:         stripe.String(s.successURL),
		CancelURL:          stripe.String(s.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(planCurrency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(planName),
					},
					UnitAmount: stripe.Int64(planAmountCents),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(planInterval),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx

	session, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	logging.Ctx(ctx).Info().Str("email", email).Str("session", session.ID).Msg("Checkout session created")
	return strings.TrimSpace(session.URL), nil
}
