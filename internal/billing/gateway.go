package billing

import "fmt"

// GatewayConfig selects and configures a gateway.
type GatewayConfig struct {
	Name        string
	MerchantID  string
	SuccessRate float64
	Stripe      StripeConfig
}

// NewGateway builds the gateway named by cfg.Name ("simulated" or "stripe").
func NewGateway(cfg GatewayConfig) (Gateway, error) {
	switch cfg.Name {
	case "", "simulated":
		return NewSimulatedGateway(cfg.MerchantID, cfg.SuccessRate), nil
	case "stripe":
		stripeCfg := cfg.Stripe
		if stripeCfg.MerchantID == "" {
			stripeCfg.MerchantID = cfg.MerchantID
		}
		return NewStripeGateway(stripeCfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, cfg.Name)
	}
}
