package core

import "context"

// Tag keys attached to every operation metric.
const (
	MetricTagOperation    = "operation"
	MetricTagStatus       = "status"
	MetricTagResourceType = "resource_type"
	MetricTagErrorKind    = "error_kind"
)

// MetricTags lists the tag keys in the order exporters declare them.
func MetricTags() []string {
	return []string{MetricTagOperation, MetricTagStatus, MetricTagResourceType, MetricTagErrorKind}
}

// OperationMetricNames returns the counter and histogram names recorded for
// operation, e.g. qrmi.acquire.total and qrmi.acquire.duration_ms.
func OperationMetricNames(prefix string, operation string) (total string, duration string) {
	base := prefix + "." + operation
	return base + ".total", base + ".duration_ms"
}

func operationTags(operation string, resourceType ResourceType, err error) map[string]string {
	tags := map[string]string{
		MetricTagOperation:    operation,
		MetricTagStatus:       "success",
		MetricTagResourceType: string(resourceType),
	}
	if err != nil {
		tags[MetricTagStatus] = "failure"
		tags[MetricTagErrorKind] = ErrorKind(err)
	}
	return tags
}

// NopMetricsRecorder discards every observation; resources use it when no
// recorder is configured.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func cloneTags(tags map[string]string) map[string]string {
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
