package instance

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("scenecore.instance")

// Lifecycle counters. They report to the global meter provider and stay
// no-ops until the host installs one.
var (
	createdTotal          metric.Int64Counter
	destroyedTotal        metric.Int64Counter
	reparentRejectedTotal metric.Int64Counter
	waitTimeoutsTotal     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		createdTotal, err = meter.Int64Counter(
			"instances_created_total",
			metric.WithDescription("Total number of instances constructed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		destroyedTotal, err = meter.Int64Counter(
			"instances_destroyed_total",
			metric.WithDescription("Total number of instances destroyed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		reparentRejectedTotal, err = meter.Int64Counter(
			"instance_reparent_rejected_total",
			metric.WithDescription("Reparent attempts rejected because the instance is parent-locked"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		waitTimeoutsTotal, err = meter.Int64Counter(
			"instance_wait_timeouts_total",
			metric.WithDescription("WaitForChild calls that timed out"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func classAttr(class string) metric.AddOption {
	return metric.WithAttributes(attribute.String("class", class))
}

func recordCreated(class string) {
	if err := initMetrics(); err != nil {
		return
	}
	createdTotal.Add(context.Background(), 1, classAttr(class))
}

func recordDestroyed(class string) {
	if err := initMetrics(); err != nil {
		return
	}
	destroyedTotal.Add(context.Background(), 1, classAttr(class))
}

func recordReparentRejected(class string) {
	if err := initMetrics(); err != nil {
		return
	}
	reparentRejectedTotal.Add(context.Background(), 1, classAttr(class))
}

func recordWaitTimeout(class string) {
	if err := initMetrics(); err != nil {
		return
	}
	waitTimeoutsTotal.Add(context.Background(), 1, classAttr(class))
}
