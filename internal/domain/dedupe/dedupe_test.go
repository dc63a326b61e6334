package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/timeforge/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it starts empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording keys", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the key is new", func() {
				seen := d.SeenAndRecord(ctx, "key-1")

				Convey("Then it should return false and record the key", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key was already seen", func() {
				d.SeenAndRecord(ctx, "key-1")
				seen := d.SeenAndRecord(ctx, "key-1")

				Convey("Then it should return true without growing", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When a key is unrecorded after a failed create", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, "key-1")
			d.Unrecord(ctx, "key-1")

			Convey("Then a retry is accepted", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "key-1"), ShouldBeFalse)
			})

			Convey("Then unrecording an unknown key is a no-op", func() {
				d.Unrecord(ctx, "nonexistent")
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the deduper is bounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for _, k := range []string{"key-1", "key-2", "key-3"} {
				So(d.SeenAndRecord(ctx, k), ShouldBeFalse)
			}

			Convey("And one more key arrives", func() {
				So(d.SeenAndRecord(ctx, "key-4"), ShouldBeFalse)

				Convey("Then the oldest key is forgotten and the rest are kept", func() {
					So(d.Size(), ShouldEqual, 3)
					So(d.SeenAndRecord(ctx, "key-4"), ShouldBeTrue)
					So(d.SeenAndRecord(ctx, "key-3"), ShouldBeTrue)
					So(d.SeenAndRecord(ctx, "key-2"), ShouldBeTrue)
					So(d.SeenAndRecord(ctx, "key-1"), ShouldBeFalse)
					So(d.Size(), ShouldEqual, 3)
				})
			})

			Convey("And a middle key is unrecorded", func() {
				d.Unrecord(ctx, "key-2")
				So(d.SeenAndRecord(ctx, "key-4"), ShouldBeFalse)

				Convey("Then no eviction was needed", func() {
					So(d.Size(), ShouldEqual, 3)
					So(d.SeenAndRecord(ctx, "key-1"), ShouldBeTrue)
				})
			})
		})

		Convey("When the deduper is unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			const n = 1000
			for i := 0; i < n; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", i)), ShouldBeFalse)
			}

			Convey("Then every key is kept", func() {
				So(d.Size(), ShouldEqual, int64(n))
				So(d.SeenAndRecord(ctx, "key-0"), ShouldBeTrue)
			})
		})
	})
}

func TestKeyScopesByOwner(t *testing.T) {
	Convey("Given the same client key from two owners", t, func() {
		d := dedupe.NewInMemoryDeduper()
		ctx := context.Background()

		So(d.SeenAndRecord(ctx, dedupe.Key("alice", "k")), ShouldBeFalse)

		Convey("Then they do not collide", func() {
			So(d.SeenAndRecord(ctx, dedupe.Key("bob", "k")), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, dedupe.Key("alice", "k")), ShouldBeTrue)
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		ctx := context.Background()
		const workers = 10

		Convey("When many goroutines race on the same key", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			winners := 0
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, "shared") {
						mu.Lock()
						winners++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one wins", func() {
				So(winners, ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When goroutines record distinct keys", func() {
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						d.SeenAndRecord(ctx, fmt.Sprintf("key-%d-%d", id, j))
					}
				}(i)
			}
			wg.Wait()

			So(d.Size(), ShouldEqual, int64(workers*100))
		})
	})
}
