package segmentation

import (
	"fmt"
	"strings"
	"time"

	"customerSegments/domain"
)

const (
	AxisPurchaseFrequency = "purchase_frequency"
	AxisPurchaseValue     = "purchase_value"
	AxisPriceSensitivity  = "price_sensitivity"
	AxisCategoryDiversity = "category_diversity"
	AxisLoyaltyTrajectory = "loyalty_trajectory"
	AxisShoppingTiming    = "shopping_timing"
	AxisChannelPreference = "channel_preference"
	AxisReturnBehavior    = "return_behavior"
)

// phrases builds a DescribeFunc from per-feature format strings taking the
// value as the only verb. Unknown features get a generic phrase.
func phrases(formats map[string]string) DescribeFunc {
	return func(feature string, value float64) string {
		if f, ok := formats[feature]; ok {
			return fmt.Sprintf(f, value)
		}
		return fmt.Sprintf("%s of %.2f", strings.ReplaceAll(feature, "_", " "), value)
	}
}

// DefaultAxisRegistry returns the built-in behavioral axes.
func DefaultAxisRegistry() *AxisRegistry {
	r := NewAxisRegistry()
	for _, def := range builtinAxes() {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

func builtinAxes() []AxisDefinition {
	return []AxisDefinition{
		{
			Name:     AxisPurchaseFrequency,
			Features: []string{"orders_per_month", "total_orders", "avg_days_between_orders", "order_interval_cv"},
			Extract: func(s *orderStats) []float64 {
				return []float64{
					s.ordersPerMonth(),
					float64(s.n),
					mean(s.intervals),
					coefficientOfVariation(s.intervals),
				}
			},
			Describe: phrases(map[string]string{
				"orders_per_month":        "about %.1f orders per month",
				"total_orders":            "%.0f orders in total",
				"avg_days_between_orders": "%.0f days between orders on average",
				"order_interval_cv":       "an order rhythm irregularity of %.2f",
			}),
		},
		{
			Name:     AxisPurchaseValue,
			Features: []string{"avg_order_value", "total_spend", "max_order_value", "avg_items_per_order"},
			Extract: func(s *orderStats) []float64 {
				var items, maxValue float64
				for _, o := range s.orders {
					for _, it := range o.Items {
						items += float64(it.Quantity)
					}
					if o.TotalAmount > maxValue {
						maxValue = o.TotalAmount
					}
				}
				total := 0.0
				for _, v := range s.values {
					total += v
				}
				return []float64{
					mean(s.values),
					total,
					maxValue,
					items / float64(s.n),
				}
			},
			Describe: phrases(map[string]string{
				"avg_order_value":     "an average basket of %.2f",
				"total_spend":         "%.2f spent in total",
				"max_order_value":     "a largest order of %.2f",
				"avg_items_per_order": "%.1f items per order",
			}),
		},
		{
			Name:     AxisPriceSensitivity,
			Features: []string{"discount_order_ratio", "avg_discount_rate", "max_discount_rate"},
			Extract: func(s *orderStats) []float64 {
				var discounted, discount, gross, maxRate float64
				for _, o := range s.orders {
					g := s.grossAmount(o)
					if o.DiscountAmount > 0 {
						discounted++
						if r := ratio(o.DiscountAmount, g); r > maxRate {
							maxRate = r
						}
					}
					discount += o.DiscountAmount
					gross += g
				}
				return []float64{
					discounted / float64(s.n),
					ratio(discount, gross),
					maxRate,
				}
			},
			Describe: phrases(map[string]string{
				"discount_order_ratio": "%.2f of orders placed with a discount",
				"avg_discount_rate":    "an average discount of %.2f of the basket",
				"max_discount_rate":    "a deepest discount of %.2f",
			}),
		},
		{
			Name:     AxisCategoryDiversity,
			Features: []string{"category_entropy", "unique_categories", "top_category_share"},
			Extract: func(s *orderStats) []float64 {
				_, counts := s.categoryCounts()
				var top, total float64
				for _, c := range counts {
					total += c
					if c > top {
						top = c
					}
				}
				return []float64{
					entropy(counts),
					float64(len(counts)),
					ratio(top, total),
				}
			},
			Describe: phrases(map[string]string{
				"category_entropy":   "a category spread of %.2f",
				"unique_categories":  "%.0f distinct categories bought",
				"top_category_share": "%.2f of items from the favourite category",
			}),
		},
		{
			Name:     AxisLoyaltyTrajectory,
			Features: []string{"order_value_trend", "order_frequency_trend", "tenure_days", "days_since_last_order"},
			Extract: func(s *orderStats) []float64 {
				monthOffsets := make([]float64, len(s.offsets))
				for i, d := range s.offsets {
					monthOffsets[i] = d / daysPerMonth
				}
				idx := make([]float64, len(s.intervals))
				for i := range idx {
					idx[i] = float64(i)
				}
				return []float64{
					slope(monthOffsets, s.values),
					// shrinking gaps mean ordering more often
					-slope(idx, s.intervals),
					s.tenureDays,
					s.sinceLast,
				}
			},
			Describe: phrases(map[string]string{
				"order_value_trend":     "a basket trend of %+.2f per month",
				"order_frequency_trend": "an order-gap trend of %+.2f days per order",
				"tenure_days":           "%.0f days since the first order",
				"days_since_last_order": "%.0f days since the last order",
			}),
		},
		{
			Name:     AxisShoppingTiming,
			Features: []string{"weekend_ratio", "evening_ratio", "morning_ratio"},
			Extract: func(s *orderStats) []float64 {
				var weekend, evening, morning float64
				for _, o := range s.orders {
					switch o.PlacedAt.Weekday() {
					case time.Saturday, time.Sunday:
						weekend++
					}
					h := o.PlacedAt.Hour()
					if h >= 18 {
						evening++
					} else if h < 12 {
						morning++
					}
				}
				n := float64(s.n)
				return []float64{weekend / n, evening / n, morning / n}
			},
			Describe: phrases(map[string]string{
				"weekend_ratio": "%.2f of orders on weekends",
				"evening_ratio": "%.2f of orders in the evening",
				"morning_ratio": "%.2f of orders in the morning",
			}),
		},
		{
			Name:     AxisChannelPreference,
			Features: []string{"online_ratio", "mobile_ratio", "channel_count"},
			Extract: func(s *orderStats) []float64 {
				var online, mobile float64
				channels := map[string]struct{}{}
				for _, o := range s.orders {
					ch := strings.ToLower(o.Channel)
					switch ch {
					case domain.ChannelOnline:
						online++
					case domain.ChannelMobile:
						mobile++
					}
					if ch != "" {
						channels[ch] = struct{}{}
					}
				}
				n := float64(s.n)
				return []float64{online / n, mobile / n, float64(len(channels))}
			},
			Describe: phrases(map[string]string{
				"online_ratio":  "%.2f of orders on the web shop",
				"mobile_ratio":  "%.2f of orders in the mobile app",
				"channel_count": "%.0f channels used",
			}),
		},
		{
			Name:     AxisReturnBehavior,
			Features: []string{"refund_order_ratio", "refund_value_ratio"},
			Extract: func(s *orderStats) []float64 {
				var refunded, refund, total float64
				for _, o := range s.orders {
					if o.RefundAmount > 0 {
						refunded++
					}
					refund += o.RefundAmount
					total += o.TotalAmount
				}
				return []float64{refunded / float64(s.n), ratio(refund, total)}
			},
			Describe: phrases(map[string]string{
				"refund_order_ratio": "%.2f of orders refunded",
				"refund_value_ratio": "%.2f of spend refunded",
			}),
		},
	}
}
