package dashboard

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"greenhome/internal/core/apperr"
	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	topN        = 5
	recommendN  = 3
	msgNoAccess = "Unauthorized"
)

type Repos struct {
	Accounts domain.AccountRepository
	Listings domain.ListingRepository
	Bookings domain.BookingRepository
	Reviews  domain.ReviewRepository
}

type AdminTotals struct {
	TotalHouses   int64 `json:"totalHouses"`
	TotalBookings int64 `json:"totalBookings"`
	TotalUsers    int64 `json:"totalUsers"`
	TotalReviews  int64 `json:"totalReviews"`
}

type AdminData struct {
	Totals               AdminTotals           `json:"totals"`
	BookingStatusSummary map[string]int64      `json:"bookingStatusSummary"`
	PopularHouses        []domain.ListingCount `json:"popularHouses"`
	RecentBookings       []domain.Booking      `json:"recentBookings"`
	RecentUsers          []domain.Account      `json:"recentUsers"`
}

type UserTotals struct {
	MyBookings int64 `json:"myBookings"`
	MyReviews  int64 `json:"myReviews"`
}

type UserData struct {
	Totals            UserTotals       `json:"totals"`
	MyBookingStatus   map[string]int64 `json:"myBookingStatus"`
	RecentBookings    []domain.Booking `json:"recentBookings"`
	RecommendedHouses []domain.Listing `json:"recommendedHouses"`
}

// Summary Data 为 *AdminData 或 *UserData，由 Role 决定
type Summary struct {
	Role string `json:"role"`
	Data any    `json:"data"`
}

// Service 只读汇总，不产生任何写入
type Service struct {
	repos Repos
	log   *zap.Logger
}

func NewService(r Repos, log *zap.Logger) *Service {
	return &Service{repos: r, log: log.Named("dashboard")}
}

func (s *Service) storeErr(op string, err error) error {
	s.log.Error("store failed", zap.String("op", op), zap.Error(err))
	return apperr.Internal("Failed to fetch dashboard data", err)
}

func (s *Service) Summarize(ctx context.Context, requesterEmail string) (*Summary, error) {
	acc, err := s.repos.Accounts.FindByEmail(ctx, utils.NormalizeEmail(requesterEmail))
	if err != nil {
		return nil, s.storeErr("resolve", err)
	}
	if acc == nil {
		return nil, apperr.Unauthorized(msgNoAccess)
	}
	if acc.IsAdmin() {
		d, err := s.admin(ctx)
		if err != nil {
			return nil, err
		}
		return &Summary{Role: RoleAdmin, Data: d}, nil
	}
	d, err := s.user(ctx, acc)
	if err != nil {
		return nil, err
	}
	return &Summary{Role: RoleUser, Data: d}, nil
}

// admin 各项读取互不依赖，全部并发；任一失败整体失败
func (s *Service) admin(ctx context.Context) (*AdminData, error) {
	d := &AdminData{}
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, fn func(context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			*dst = n
			return err
		})
	}
	count(&d.Totals.TotalHouses, s.repos.Listings.Count)
	count(&d.Totals.TotalBookings, s.repos.Bookings.Count)
	count(&d.Totals.TotalUsers, s.repos.Accounts.Count)
	count(&d.Totals.TotalReviews, func(ctx context.Context) (int64, error) { return s.repos.Reviews.Count(ctx, "") })

	g.Go(func() (err error) {
		d.BookingStatusSummary, err = s.repos.Bookings.StatusHistogram(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.PopularHouses, err = s.repos.Bookings.Popular(gctx, topN)
		return err
	})
	g.Go(func() (err error) {
		d.RecentBookings, err = s.repos.Bookings.List(gctx, domain.BookingQuery{Newest: true, Limit: topN})
		return err
	})
	g.Go(func() (err error) {
		d.RecentUsers, err = s.repos.Accounts.List(gctx, domain.AccountQuery{Limit: topN})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.storeErr("admin", err)
	}

	if d.BookingStatusSummary == nil {
		d.BookingStatusSummary = map[string]int64{}
	}
	d.PopularHouses = nonNil(d.PopularHouses)
	d.RecentBookings = nonNil(d.RecentBookings)
	d.RecentUsers = nonNil(d.RecentUsers)
	return d, nil
}

// user 先取本人预订与评价数，再根据已订房源算推荐
func (s *Service) user(ctx context.Context, acc *domain.Account) (*UserData, error) {
	var (
		bookings []domain.Booking
		reviews  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		bookings, err = s.repos.Bookings.List(gctx, domain.BookingQuery{UserID: acc.ID})
		return err
	})
	g.Go(func() (err error) {
		reviews, err = s.repos.Reviews.Count(gctx, acc.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.storeErr("user", err)
	}

	status := make(map[string]int64)
	booked := make([]string, 0, len(bookings))
	for _, b := range bookings {
		status[b.Status]++
		booked = append(booked, b.ListingID)
	}
	recent := append([]domain.Booking(nil), bookings...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].BookedAt.After(recent[j].BookedAt) })
	if len(recent) > topN {
		recent = recent[:topN]
	}

	recommended, err := s.repos.Listings.ListExcluding(ctx, booked, recommendN)
	if err != nil {
		return nil, s.storeErr("recommend", err)
	}
	return &UserData{
		Totals:            UserTotals{MyBookings: int64(len(bookings)), MyReviews: reviews},
		MyBookingStatus:   status,
		RecentBookings:    nonNil(recent),
		RecommendedHouses: nonNil(recommended),
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
