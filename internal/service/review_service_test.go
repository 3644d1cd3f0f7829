package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

func TestReviewSubmit_RecomputesMean(t *testing.T) {
	f := newFixture(t)
	rest := f.restaurant(t, model.Restaurant{Name: "Roma"})
	svc := NewReviewService(f.restaurants, f.reviews, nil)
	ctx := context.Background()

	var last *ReviewResult
	for i, rating := range []int{4, 5, 3} {
		res, err := svc.Submit(ctx, rest.ID, uint64(i+1), rating, "")
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.Equal(t, "Review submitted successfully", res.Message)
		last = res
	}
	assert.Equal(t, 4.0, last.Rating)
	assert.Equal(t, 3, last.Count)

	got, err := f.restaurants.GetByID(ctx, rest.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got.Rating, 1e-9)
}

func TestReviewSubmit_UpsertsPerUser(t *testing.T) {
	f := newFixture(t)
	rest := f.restaurant(t, model.Restaurant{Name: "Roma"})
	svc := NewReviewService(f.restaurants, f.reviews, nil)
	ctx := context.Background()

	first, err := svc.Submit(ctx, rest.ID, 1, 5, "great")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, rest.ID, 2, 4, "good")
	require.NoError(t, err)

	again, err := svc.Submit(ctx, rest.ID, 1, 2, "went downhill")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, "Review updated successfully", again.Message)
	assert.Equal(t, first.Review.ID, again.Review.ID)
	assert.Equal(t, 2, again.Count)
	assert.Equal(t, 3.0, again.Rating)

	list, err := svc.ListByRestaurant(ctx, rest.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	var mine model.Review
	for _, r := range list {
		if r.UserID == 1 {
			mine = r
		}
	}
	assert.Equal(t, 2, mine.Rating)
	assert.Equal(t, "went downhill", mine.Comment)
	assert.True(t, mine.CreatedAt.Equal(first.Review.CreatedAt), "created_at survives the update")
}

func TestReviewSubmit_RoundsToTwoDecimals(t *testing.T) {
	f := newFixture(t)
	rest := f.restaurant(t, model.Restaurant{Name: "Roma"})
	svc := NewReviewService(f.restaurants, f.reviews, nil)

	var res *ReviewResult
	var err error
	for i, rating := range []int{5, 4, 4} {
		res, err = svc.Submit(context.Background(), rest.ID, uint64(i+1), rating, "")
		require.NoError(t, err)
	}
	assert.Equal(t, 4.33, res.Rating)
}

func TestReviewSubmit_Rejects(t *testing.T) {
	f := newFixture(t)
	rest := f.restaurant(t, model.Restaurant{Name: "Roma"})
	svc := NewReviewService(f.restaurants, f.reviews, nil)
	ctx := context.Background()

	for _, bad := range []int{0, 6, -1} {
		_, err := svc.Submit(ctx, rest.ID, 1, bad, "")
		assert.ErrorIs(t, err, ErrInvalidRating)
	}
	_, err := svc.Submit(ctx, 999, 1, 4, "")
	assert.ErrorIs(t, err, repository.ErrRestaurantNotFound)

	_, err = svc.ListByRestaurant(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrRestaurantNotFound)
}

func TestReviewSubmit_ConcurrentSubmitters(t *testing.T) {
	f := newFixture(t)
	rest := f.restaurant(t, model.Restaurant{Name: "Roma"})
	svc := NewReviewService(f.restaurants, f.reviews, nil)

	const workers = 10
	var (
		wg       sync.WaitGroup
		maxCount atomic.Int32
		start    = make(chan struct{})
		sum      int
	)
	for i := 0; i < workers; i++ {
		rating := i%5 + 1
		sum += rating
		wg.Add(1)
		go func(user uint64, rating int) {
			defer wg.Done()
			<-start
			res, err := svc.Submit(context.Background(), rest.ID, user, rating, "")
			if !assert.NoError(t, err) {
				return
			}
			for {
				cur := maxCount.Load()
				if int32(res.Count) <= cur || maxCount.CompareAndSwap(cur, int32(res.Count)) {
					break
				}
			}
		}(uint64(i+1), rating)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(workers), maxCount.Load(), "the last writer sees every review")
	list, err := svc.ListByRestaurant(context.Background(), rest.ID)
	require.NoError(t, err)
	assert.Len(t, list, workers)

	got, err := f.restaurants.GetByID(context.Background(), rest.ID)
	require.NoError(t, err)
	assert.InDelta(t, float64(sum)/workers, got.Rating, 1e-9)
}

func TestReviewSubmit_ConcurrentSameUser(t *testing.T) {
	f := newFixture(t)
	rest := f.restaurant(t, model.Restaurant{Name: "Roma"})
	svc := NewReviewService(f.restaurants, f.reviews, nil)

	const workers = 8
	var (
		wg      sync.WaitGroup
		created atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			<-start
			res, err := svc.Submit(context.Background(), rest.ID, 7, rating, "")
			if assert.NoError(t, err) && res.Created {
				created.Add(1)
			}
		}(i%5 + 1)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	list, err := svc.ListByRestaurant(context.Background(), rest.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := f.restaurants.GetByID(context.Background(), rest.ID)
	require.NoError(t, err)
	assert.InDelta(t, float64(list[0].Rating), got.Rating, 1e-9)
}
