// Package reactive provides a push-based, demand-driven stream engine with two
// producer flavours: Mono (zero or one value) and Flux (zero to many values).
//
// Producers are lazy, immutable descriptions. Nothing happens until a
// Subscriber subscribes; each subscription is an independent execution with its
// own demand counter and cancellation flag. Values flow from the source to the
// subscriber one signal at a time, and demand flows back the other way through
// Subscription.Request.
//
// # Signals
//
// A subscription sees zero or more Next signals followed by at most one
// terminal signal (Complete or Error). Cancellation is not a signal: after
// Cancel no further callbacks are delivered.
//
// # Operators
//
// Type-changing operators are free functions, same-type operators are methods:
//
//   - Map, FlatMap, FlatMapN, ConcatMap, Transform, Reduce, CollectList (Flux)
//   - MonoMap, MonoFlatMap, MonoFlatMapMany, MonoTransform (Mono)
//   - Filter, DefaultIfEmpty, SwitchIfEmpty, Take, DelayElements, Log, DoOn*
//   - OnErrorReturn, OnErrorResume, OnErrorContinue, OnErrorMap, DoOnError, Retry
//
// # Combinators
//
//   - Concat: subscribe one source after the other, strictly ordered
//   - Merge: subscribe all sources at once, values in arrival order
//   - Zip, Zip3, ZipWith, ZipAll: index-aligned combination, shortest input wins
//
// # Usage
//
//	names := reactive.FromSlice([]string{"Arka", "Farhan", "Akif", "Nipa"})
//	long := names.Filter(func(s string) bool { return len(s) > 4 })
//	upper := reactive.Map(long, func(_ context.Context, s string) (string, error) {
//	    return strings.ToUpper(s), nil
//	})
//	values, err := reactive.Collect(ctx, upper)
//
// User functions receive the subscription context. It carries the Scheduler
// used by time-based operators (see WithScheduler) and is cancelled when the
// subscription ends.
package reactive
