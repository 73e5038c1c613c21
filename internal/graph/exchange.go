package graph

import "context"

// Exchange is the HTTP request/response pair a GraphQL operation runs in.
// Resolvers read cookies and headers from it and queue Set-Cookie headers
// on it.
type Exchange interface {
	Cookies() map[string]string
	Header(name string) string
	SetCookie(header string)
}

type exchangeKey struct{}

// WithExchange returns a copy of ctx carrying ex.
func WithExchange(ctx context.Context, ex Exchange) context.Context {
	return context.WithValue(ctx, exchangeKey{}, ex)
}

// ExchangeFrom returns the Exchange stored in ctx. Without one, reads are
// empty and cookie writes are dropped.
func ExchangeFrom(ctx context.Context) Exchange {
	if ex, ok := ctx.Value(exchangeKey{}).(Exchange); ok && ex != nil {
		return ex
	}
	return nopExchange{}
}

type nopExchange struct{}

func (nopExchange) Cookies() map[string]string { return map[string]string{} }
func (nopExchange) Header(string) string        { return "" }
func (nopExchange) SetCookie(string)            {}
