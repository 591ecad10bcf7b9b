package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/spindle/internal/app"
	"github.com/okian/spindle/internal/adapters/broadcast"
	"github.com/okian/spindle/internal/adapters/repository"
	"github.com/okian/spindle/internal/domain/catalog"
	"github.com/okian/spindle/internal/domain/draw"
	"github.com/okian/spindle/internal/domain/model"
	"github.com/okian/spindle/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// captureEmitter remembers published events.
type captureEmitter struct {
	mu     sync.Mutex
	events []broadcast.Event
	fail   bool
}

func (e *captureEmitter) Publish(_ context.Context, ev broadcast.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return errors.New("broker unavailable")
	}
	e.events = append(e.events, ev)
	return nil
}

func (e *captureEmitter) published() []broadcast.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]broadcast.Event(nil), e.events...)
}

func seedCatalog() *repository.MemoryCatalog {
	cat := repository.NewMemoryCatalog()
	cat.AddCase(
		catalog.CaseDefinition{
			ID:    "standard",
			Name:  "Standard Case",
			Price: 250,
			Distribution: map[catalog.Tier]float64{
				catalog.TierCommon:    60,
				catalog.TierUncommon:  25,
				catalog.TierRare:      10,
				catalog.TierEpic:      4,
				catalog.TierLegendary: 1,
			},
		},
		[]catalog.WeightedItem{
			{ID: "scrap", Name: "Scrap", Rarity: catalog.TierCommon, BaseValue: 10, Weight: 1, ValueMultiplier: 1},
			{ID: "blade", Name: "Blade", Rarity: catalog.TierUncommon, BaseValue: 40, Weight: 1, ValueMultiplier: 1},
			{ID: "visor", Name: "Visor", Rarity: catalog.TierRare, BaseValue: 120, Weight: 1, ValueMultiplier: 1.1},
			{ID: "cloak", Name: "Cloak", Rarity: catalog.TierEpic, BaseValue: 400, Weight: 1, ValueMultiplier: 1.25},
			{ID: "crown", Name: "Crown", Rarity: catalog.TierLegendary, BaseValue: 2000, Weight: 1, ValueMultiplier: 1.5},
		},
	)
	return cat
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given an unstarted service", t, func() {
		ctx := context.Background()

		Convey("When started without a catalog", func() {
			svc := service.New(service.WithStore(repository.NewMemoryStore()))

			Convey("Then startup fails with the dependency sentinel", func() {
				So(errors.Is(svc.Start(ctx), service.ErrMissingDependency), ShouldBeTrue)
			})
		})

		Convey("When started without a store", func() {
			svc := service.New(service.WithCatalog(seedCatalog()))

			Convey("Then startup fails with the dependency sentinel", func() {
				So(errors.Is(svc.Start(ctx), service.ErrMissingDependency), ShouldBeTrue)
			})
		})

		Convey("When used before Start", func() {
			svc := service.New(
				service.WithCatalog(seedCatalog()),
				service.WithStore(repository.NewMemoryStore()),
			)

			Convey("Then operations refuse gracefully instead of panicking", func() {
				_, err := svc.OpenCase(ctx, "u-1", "standard")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

				_, err = svc.PerformanceMetrics(ctx, model.OpCaseOpen, model.WindowHour)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

				_, err = svc.FairnessReport(ctx, "standard")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

				So(errors.Is(svc.Flush(ctx), service.ErrNotStarted), ShouldBeTrue)

				h := svc.SystemHealth(ctx)
				So(h.Status, ShouldEqual, model.StatusUnhealthy)
				So(h.Issues, ShouldHaveLength, 1)

				So(func() {
					svc.RecordTransaction(ctx, svc.StartTimer(), "u-1", -250, true, nil)
					svc.RecordPersistence(ctx, svc.StartTimer(), "inventory", true, nil)
				}, ShouldNotPanic)
			})
		})

		Convey("When fully wired", func() {
			svc := service.New(
				service.WithCatalog(seedCatalog()),
				service.WithStore(repository.NewMemoryStore()),
			)

			Convey("Then it starts, reports stats, and stops cleanly", func() {
				So(svc.Start(ctx), ShouldBeNil)
				So(svc.Start(ctx), ShouldBeNil)

				stats := svc.Stats()
				So(stats["started"], ShouldBeTrue)
				So(stats["buffered_records"], ShouldEqual, 0)

				svc.Stop()
				svc.Stop()
				So(svc.Stats()["started"], ShouldBeFalse)
			})
		})
	})
}

func TestOpenCase(t *testing.T) {
	Convey("Given a started service over a seeded catalog", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		emitter := &captureEmitter{}
		svc := service.New(
			service.WithCatalog(seedCatalog()),
			service.WithStore(store),
			service.WithEmitter(emitter),
			service.WithRandomSource(draw.NewSeededSource(11)),
			service.WithBufferCapacity(10_000),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a case is opened", func() {
			res, err := svc.OpenCase(ctx, "u-1", "standard")

			Convey("Then a valid reward comes back", func() {
				So(err, ShouldBeNil)
				So(res.Item.ID, ShouldNotBeEmpty)
				So(res.Tier.Valid(), ShouldBeTrue)
				So(res.Value, ShouldBeGreaterThan, 0)
			})

			Convey("Then a successful record lands in the store after a flush", func() {
				So(svc.Flush(ctx), ShouldBeNil)

				yes := true
				recs, err := store.QueryRecords(ctx, repository.Filter{
					Operation: model.OpCaseOpen,
					CaseID:    "standard",
					Success:   &yes,
				})
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 1)
				So(recs[0].Context[model.FieldUserID], ShouldEqual, "u-1")
				So(recs[0].Context[model.FieldRarity], ShouldEqual, string(res.Tier))
			})
		})

		Convey("When the case does not exist", func() {
			_, err := svc.OpenCase(ctx, "u-1", "missing")

			Convey("Then the draw fails and only a failure record is written", func() {
				So(errors.Is(err, catalog.ErrCaseNotFound), ShouldBeTrue)

				So(svc.Flush(ctx), ShouldBeNil)
				yes := true
				succeeded, qerr := store.QueryRecords(ctx, repository.Filter{Operation: model.OpCaseOpen, Success: &yes})
				So(qerr, ShouldBeNil)
				So(succeeded, ShouldBeEmpty)

				no := false
				failed, qerr := store.QueryRecords(ctx, repository.Filter{Operation: model.OpCaseOpen, Success: &no})
				So(qerr, ShouldBeNil)
				So(failed, ShouldHaveLength, 1)
				So(failed[0].Context[model.FieldCaseID], ShouldEqual, "missing")
			})
		})

		Convey("When many cases are opened", func() {
			const n = 2000
			for i := 0; i < n; i++ {
				_, err := svc.OpenCase(ctx, "u-1", "standard")
				So(err, ShouldBeNil)
			}
			So(svc.Flush(ctx), ShouldBeNil)

			Convey("Then the health check over them reads healthy", func() {
				h := svc.SystemHealth(ctx)
				So(h.Status, ShouldEqual, model.StatusHealthy)
				So(h.TotalOperations, ShouldEqual, n)
				So(h.ErrorRate, ShouldEqual, 0.0)
			})

			Convey("Then the performance aggregate covers every draw", func() {
				agg, err := svc.PerformanceMetrics(ctx, model.OpCaseOpen, model.WindowHour)
				So(err, ShouldBeNil)
				So(agg, ShouldNotBeNil)
				So(agg.TotalCount, ShouldEqual, n)
				So(agg.SuccessRate, ShouldEqual, 100.0)
			})

			Convey("Then the fairness audit sees every draw and tracks the declared shape", func() {
				report, err := svc.FairnessReport(ctx, "standard")
				So(err, ShouldBeNil)
				So(report, ShouldNotBeNil)
				So(report.TotalDraws, ShouldEqual, n)
				So(report.Observed[catalog.TierCommon], ShouldAlmostEqual, 60.0, 5.0)
				So(report.Expected[catalog.TierLegendary], ShouldEqual, 1.0)
			})

			Convey("Then only rare or better draws were announced", func() {
				for _, ev := range emitter.published() {
					So(ev.Tier, ShouldBeIn, catalog.TierRare, catalog.TierEpic, catalog.TierLegendary)
				}
			})
		})
	})
}

func TestOpenCaseDrawFailures(t *testing.T) {
	Convey("Given a service whose case configuration is broken", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()

		Convey("When the declared distribution does not sum to 100", func() {
			cat := repository.NewMemoryCatalog()
			cat.AddCase(
				catalog.CaseDefinition{
					ID:           "broken",
					Distribution: map[catalog.Tier]float64{catalog.TierCommon: 50},
				},
				[]catalog.WeightedItem{
					{ID: "scrap", Rarity: catalog.TierCommon, BaseValue: 10, Weight: 1, ValueMultiplier: 1},
				},
			)
			svc := service.New(service.WithCatalog(cat), service.WithStore(store))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			_, err := svc.OpenCase(ctx, "u-1", "broken")

			Convey("Then the draw is declined before anything moves", func() {
				So(errors.Is(err, catalog.ErrInvalidDistribution), ShouldBeTrue)
			})
		})

		Convey("When the drawn tier has no items", func() {
			cat := repository.NewMemoryCatalog()
			cat.AddCase(
				catalog.CaseDefinition{
					ID: "hollow",
					Distribution: map[catalog.Tier]float64{
						catalog.TierCommon:    50,
						catalog.TierLegendary: 50,
					},
				},
				[]catalog.WeightedItem{
					{ID: "scrap", Rarity: catalog.TierCommon, BaseValue: 10, Weight: 1, ValueMultiplier: 1},
				},
			)
			// A zero roll forces the legendary tier, which has no items.
			svc := service.New(
				service.WithCatalog(cat),
				service.WithStore(store),
				service.WithRandomSource(draw.NewFixedSource(0, 0)),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			_, err := svc.OpenCase(ctx, "u-1", "hollow")

			Convey("Then the draw fails with the empty pool sentinel and no success record exists", func() {
				So(errors.Is(err, draw.ErrEmptyPool), ShouldBeTrue)

				So(svc.Flush(ctx), ShouldBeNil)
				yes := true
				succeeded, qerr := store.QueryRecords(ctx, repository.Filter{Success: &yes})
				So(qerr, ShouldBeNil)
				So(succeeded, ShouldBeEmpty)
			})
		})
	})
}

func TestAnnounceThreshold(t *testing.T) {
	Convey("Given a service announcing only legendary drops", t, func() {
		ctx := context.Background()
		emitter := &captureEmitter{}
		svc := service.New(
			service.WithCatalog(seedCatalog()),
			service.WithStore(repository.NewMemoryStore()),
			service.WithEmitter(emitter),
			service.WithAnnounceTier(catalog.TierLegendary),
			// Roll 0 lands on legendary, the rarest tier.
			service.WithRandomSource(draw.NewFixedSource(0, 0)),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a legendary item drops", func() {
			res, err := svc.OpenCase(ctx, "u-1", "standard")
			So(err, ShouldBeNil)
			So(res.Tier, ShouldEqual, catalog.TierLegendary)

			Convey("Then the drop is announced with its computed value", func() {
				events := emitter.published()
				So(events, ShouldHaveLength, 1)
				So(events[0].ItemID, ShouldEqual, "crown")
				So(events[0].Value, ShouldEqual, 3000)
			})
		})

		Convey("When the emitter is down", func() {
			emitter.fail = true

			res, err := svc.OpenCase(ctx, "u-1", "standard")

			Convey("Then the draw still succeeds", func() {
				So(err, ShouldBeNil)
				So(res.Tier, ShouldEqual, catalog.TierLegendary)
				So(emitter.published(), ShouldBeEmpty)
			})
		})
	})
}

func TestCallerSideRecording(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := service.New(
			service.WithCatalog(seedCatalog()),
			service.WithStore(store),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the caller records a transaction and a persistence call", func() {
			start := svc.StartTimer()
			svc.RecordTransaction(ctx, start, "u-9", -250, true, nil)
			svc.RecordPersistence(ctx, start, "inventory", false, errors.New("timeout"))
			So(svc.Flush(ctx), ShouldBeNil)

			Convey("Then both records are queryable by operation", func() {
				tx, err := store.QueryRecords(ctx, repository.Filter{Operation: model.OpTransaction})
				So(err, ShouldBeNil)
				So(tx, ShouldHaveLength, 1)
				So(tx[0].Context[model.FieldAmount], ShouldEqual, "-250")

				persist, err := store.QueryRecords(ctx, repository.Filter{Operation: model.OpPersistence})
				So(err, ShouldBeNil)
				So(persist, ShouldHaveLength, 1)
				So(persist[0].Success, ShouldBeFalse)
				So(persist[0].Context[model.FieldTarget], ShouldEqual, "inventory")
			})
		})
	})
}
