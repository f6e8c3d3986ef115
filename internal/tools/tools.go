package tools

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloud-ru/mcp-household-finance-go/internal/metrics"
)

// ToolHandler представляет обработчик инструмента
type ToolHandler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// toolCall ведет спан и метрики одного вызова инструмента
type toolCall struct {
	name string
	span trace.Span
}

func startCall(ctx context.Context, tracer trace.Tracer, name string) (context.Context, *toolCall) {
	ctx, span := tracer.Start(ctx, name)
	return ctx, &toolCall{name: name, span: span}
}

func (c *toolCall) end() { c.span.End() }

// invalid фиксирует ошибку валидации параметров
func (c *toolCall) invalid(err error) error {
	c.span.SetAttributes(attribute.String("error", "validation_error"))
	c.span.SetStatus(codes.Error, err.Error())
	metrics.ToolCalls.WithLabelValues(c.name, "validation_error").Inc()
	metrics.CalculationErrors.WithLabelValues(c.name, "validation").Inc()
	return fmt.Errorf("неверные параметры: %w", err)
}

// failed фиксирует ошибку расчета или хранилища
func (c *toolCall) failed(err error) error {
	c.span.SetAttributes(attribute.String("error", "calculation_error"))
	c.span.RecordError(err)
	c.span.SetStatus(codes.Error, err.Error())
	metrics.ToolCalls.WithLabelValues(c.name, "error").Inc()
	metrics.CalculationErrors.WithLabelValues(c.name, "calculation").Inc()
	return fmt.Errorf("ошибка при выполнении расчета: %w", err)
}

func (c *toolCall) ok(attrs ...attribute.KeyValue) {
	c.span.SetAttributes(append(attrs, attribute.Bool("success", true))...)
	metrics.ToolCalls.WithLabelValues(c.name, "success").Inc()
}

// validate возвращает первую ошибку из списка проверок
func validate(checks ...error) error {
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}
