package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"training-launcher/core/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
)

// PricingAPI is the subset of the price list client used for estimates
type PricingAPI interface {
	GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

// priceListItem is the part of a price list document we read
type priceListItem struct {
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				Unit         string            `json:"unit"`
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

// FetchTrainingPrice returns the on-demand hourly price of a SageMaker training
// instance in region.
func FetchTrainingPrice(ctx context.Context, api PricingAPI, instanceType, region string) (*models.InstancePrice, error) {
	out, err := api.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: aws.String("AmazonSageMaker"),
		Filters: []types.Filter{
			termMatch("instanceName", instanceType),
			termMatch("regionCode", region),
			termMatch("component", "Training"),
		},
		MaxResults: aws.Int32(10),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price for %s in %s: %w", instanceType, region, err)
	}

	for _, doc := range out.PriceList {
		price, ok, err := hourlyUSD(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price list for %s: %w", instanceType, err)
		}
		if ok {
			return &models.InstancePrice{
				InstanceType: instanceType,
				Region:       region,
				PricePerHour: price,
				LastUpdated:  time.Now().UTC(),
			}, nil
		}
	}

	return nil, fmt.Errorf("no on-demand training price for %s in %s", instanceType, region)
}

func termMatch(field, value string) types.Filter {
	return types.Filter{
		Field: aws.String(field),
		Type:  types.FilterTypeTermMatch,
		Value: aws.String(value),
	}
}

func hourlyUSD(doc string) (float64, bool, error) {
	var item priceListItem
	if err := json.Unmarshal([]byte(doc), &item); err != nil {
		return 0, false, err
	}

	for _, term := range item.Terms.OnDemand {
		for _, dim := range term.PriceDimensions {
			if dim.Unit != "Hrs" && dim.Unit != "Hours" {
				continue
			}
			usd, ok := dim.PricePerUnit["USD"]
			if !ok {
				continue
			}
			price, err := strconv.ParseFloat(usd, 64)
			if err != nil {
				return 0, false, err
			}
			if price > 0 {
				return price, true, nil
			}
		}
	}
	return 0, false, nil
}
