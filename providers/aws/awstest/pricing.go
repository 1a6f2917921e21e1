package awstest

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/pricing"
)

// FakePricing returns a canned price list
type FakePricing struct {
	PriceList []string
	Err       error
	Inputs    []*pricing.GetProductsInput
}

// PriceDocument renders a minimal price list document with one hourly USD rate
func PriceDocument(instanceType, usd string) string {
	return fmt.Sprintf(`{
  "product": {"attributes": {"instanceName": %q, "component": "Training"}},
  "terms": {"OnDemand": {"SKU.TERM": {"priceDimensions": {"SKU.TERM.RATE": {"unit": "Hrs", "pricePerUnit": {"USD": %q}}}}}}
}`, instanceType, usd)
}

func (f *FakePricing) GetProducts(_ context.Context, in *pricing.GetProductsInput, _ ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
	f.Inputs = append(f.Inputs, in)
	if f.Err != nil {
		return nil, f.Err
	}
	return &pricing.GetProductsOutput{PriceList: f.PriceList}, nil
}
