// Package auth supplies request headers for authenticated catalogue access.
//
// A HeaderSource is asked for headers once per request. The bundled sources
// cover anonymous access (None), a fixed token (Static) and OAuth2 token
// sources (Bearer), optionally persisted in Redis through a TokenStore so
// that several processes share one token until it expires:
//
//	store := auth.NewTokenStore(redisClient)
//	src := auth.Cached(store, "aiod-cli", clientCredentials.TokenSource(ctx))
//	headers := auth.Bearer(src)
//
// TokenStore.Invalidate drops a stored token, e.g. after the server rejected it.
package auth
