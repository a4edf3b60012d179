package xcontext

import "context"

type adminSubjectKey struct{}

// SetAdminSubject records the subject of a verified admin access token.
func SetAdminSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, adminSubjectKey{}, subject)
}

func GetAdminSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(adminSubjectKey{}).(string)
	return subject, ok
}
