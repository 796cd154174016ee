package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/fekuna/omnipos-boutique-service/internal/apperr"
	"github.com/fekuna/omnipos-boutique-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-boutique-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-boutique-service/internal/testutil"
	"github.com/fekuna/omnipos-boutique-service/internal/units"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConcurrentSellsNeverOversell(t *testing.T) {
	e := newEnv(t, usecase.Options{})
	p := testutil.CreateProduct(t, e.db, e.shop.ID, "Bread", 10, units.Piece, 300)

	const buyers = 25
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		sold, denied int
		unexpected   []error
	)

	wg.Add(buyers)
	for i := 0; i < buyers; i++ {
		go func() {
			defer wg.Done()
			_, err := e.uc.Sell(context.Background(), &dto.SellInput{ProductID: p.ID, Quantity: 1})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold++
			case apperr.KindOf(err) == apperr.KindInsufficientStock:
				denied++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, unexpected)
	assert.Equal(t, 10, sold)
	assert.Equal(t, buyers-10, denied)
	assert.Equal(t, 0.0, testutil.ProductStock(t, e.db, p.ID))
	assert.Equal(t, 10, testutil.CountRows(t, e.db, "sales"))
}

func TestConcurrentCheckoutsNeverOversellVariant(t *testing.T) {
	e := newEnv(t, usecase.Options{})
	p := testutil.CreateProduct(t, e.db, e.shop.ID, "Tee", 0, units.Piece, 10,
		testutil.WithVariants(map[string]float64{"L": 4}))
	v := variantByName(t, p, "L")

	const buyers = 12
	var wg sync.WaitGroup
	results := make(chan int, buyers)

	wg.Add(buyers)
	for i := 0; i < buyers; i++ {
		go func() {
			defer wg.Done()
			res, err := e.uc.Checkout(context.Background(), &dto.CheckoutInput{
				TotalAmount: decimalOf(10),
				Items:       []dto.CheckoutItem{{ProductID: p.ID, VariantID: v.ID, Quantity: 1, Price: decimalOf(10)}},
			})
			if err != nil {
				results <- 0
				return
			}
			results <- res.AcceptedCount
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for n := range results {
		accepted += n
	}
	assert.Equal(t, 4, accepted)
	assert.Equal(t, 0.0, testutil.VariantStock(t, e.db, v.ID))
}

func decimalOf(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
