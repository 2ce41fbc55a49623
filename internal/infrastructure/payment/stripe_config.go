package payment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds the payment gateway credentials. IsTestMode guards
// against wiring a live key into a non-production deployment, and the
// reverse.
type StripeConfig struct {
	SecretKey  string
	IsTestMode bool
}

// Validate checks the key is present and matches the deployment mode
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return errors.New("stripe: secret key is required")
	}
	isTestKey := strings.HasPrefix(c.SecretKey, "sk_test")
	if c.IsTestMode && !isTestKey {
		return fmt.Errorf("stripe: test mode requires an sk_test key")
	}
	if !c.IsTestMode && isTestKey {
		return fmt.Errorf("stripe: live mode cannot use an sk_test key")
	}
	return nil
}

// InitStripeClient sets the package-level API key the stripe SDK uses
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}
