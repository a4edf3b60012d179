package xslog

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/version"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xhttp"
)

const (
	keyError = "error"
)

func Error(err error) slog.Attr {
	return slog.String(keyError, err.Error())
}

func ErrorAny(err any) slog.Attr {
	return slog.Any(keyError, err)
}

func RequestID(requestID string) slog.Attr {
	const requestIDKey = "request_id"
	return slog.String(requestIDKey, requestID)
}

func Stack() slog.Attr {
	const stackKey = "stack"
	return slog.String(stackKey, string(debug.Stack()))
}

func HTTPStatus(status int) slog.Attr {
	const statusKey = "status"
	return slog.Int(statusKey, status)
}

func Duration(duration time.Duration) slog.Attr {
	const durationKey = "duration"
	return slog.Duration(durationKey, duration)
}

func RequestMethod(r *http.Request) slog.Attr {
	const methodKey = "method"
	return slog.String(methodKey, r.Method)
}

func RequestPath(r *http.Request) slog.Attr {
	const pathKey = "path"
	return slog.String(pathKey, r.URL.Path)
}

func IP(ip string) slog.Attr {
	const ipKey = "ip"
	return slog.String(ipKey, ip)
}

func RequestIP(r *http.Request) slog.Attr {
	return IP(xhttp.GetRequestIP(r))
}

func Version() slog.Attr {
	const versionKey = "version"
	return slog.String(versionKey, version.Get())
}

func Count(count int) slog.Attr {
	const countKey = "count"
	return slog.Int(countKey, count)
}

func EventID(id string) slog.Attr {
	const eventIDKey = "event_id"
	return slog.String(eventIDKey, id)
}

func EventType(t string) slog.Attr {
	const eventTypeKey = "event_type"
	return slog.String(eventTypeKey, t)
}

func SignatureValid(valid bool) slog.Attr {
	const signatureValidKey = "signature_valid"
	return slog.Bool(signatureValidKey, valid)
}

func OrderID(id string) slog.Attr {
	const orderIDKey = "order_id"
	return slog.String(orderIDKey, id)
}

func OrderStatus(status string) slog.Attr {
	const orderStatusKey = "order_status"
	return slog.String(orderStatusKey, status)
}

func SKU(sku string) slog.Attr {
	const skuKey = "sku"
	return slog.String(skuKey, sku)
}

func TransactionID(idtrx string) slog.Attr {
	const transactionIDKey = "idtrx"
	return slog.String(transactionIDKey, idtrx)
}

func Target(target string) slog.Attr {
	const targetKey = "target"
	return slog.String(targetKey, target)
}

func Category(category string) slog.Attr {
	const categoryKey = "category"
	return slog.String(categoryKey, category)
}

func Outcome(outcome string) slog.Attr {
	const outcomeKey = "outcome"
	return slog.String(outcomeKey, outcome)
}

func FetchStatus(status string) slog.Attr {
	const fetchStatusKey = "fetch_status"
	return slog.String(fetchStatusKey, status)
}

// Fetch logs an order fetch outcome as a group.
func Fetch(result slog.LogValuer) slog.Attr {
	const fetchKey = "fetch"
	return slog.Any(fetchKey, result)
}

func Provider(provider string) slog.Attr {
	const providerKey = "provider"
	return slog.String(providerKey, provider)
}

func Migration(name string) slog.Attr {
	const migrationKey = "migration"
	return slog.String(migrationKey, name)
}
