// Package restclient is the main entry point for building a configured
// rest.Invoker.
//
// New wires the HTTP transport, authentication filters, an optional response
// cache, metrics and a bounded executor for asynchronous calls:
//
//	client, err := restclient.New(ctx, &restclient.Config{
//		Endpoint:    "https://api.example.com/v1",
//		AccessToken: os.Getenv("API_TOKEN"),
//		Cache:       &cache.Config{Type: cache.TypeMemory},
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	server, err := rest.Invoke[*Server](ctx, client.Invoker(), getServer, rest.Args{"id": "42"})
//
// # Authentication precedence
//
//  1. TokenSource: sent as a Bearer token.
//  2. TokenURL: an OAuth2 token is fetched with the refresh token, password
//     or client credentials grant, seeded by AccessToken, and refreshed
//     before it expires.
//  3. AccessToken: sent as a Bearer token.
//  4. Username and Password: sent as Basic credentials.
//  5. Signer, or HMACIdentity and HMACSecret: each request is signed.
//
// Exactly one Authorization header is produced per request.
package restclient
