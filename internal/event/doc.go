// Package event provides the background dispatcher used for decoupled
// notification between the view model, the model and the views.
//
// Producers call [Dispatcher.Publish] with a queue key such as
// [github.com/julianstephens/activitytracker/internal/constants.EventsModel].
// Queues are created on first use and kept for the life of the dispatcher.
// A single worker goroutine drains every queue in the order the queues were
// created, delivering each event to the handlers subscribed to its queue key
// and then to wildcard handlers.
//
// # Ordering
//
// Events within one queue are delivered in publish order. No fairness is
// promised across queues.
//
// # Thread Safety
//
// Publish, Subscribe and Unsubscribe are safe for concurrent use. Handlers
// run on the worker goroutine, one at a time; a panicking handler is logged
// and does not stop delivery.
package event
