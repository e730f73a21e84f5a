// Package client issues HTTP requests through an event-emitting transport
// and settles each one exactly once.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options. Defaults given
// with [WithDefaults] apply to every request:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//		client.WithDefaults(client.Options{
//			Headers: map[string][]string{"Accept": {"application/json"}},
//		}),
//	)
//
// # Making Requests
//
// [Client.Request] returns a [Result] immediately. [Result.Await] blocks
// until it settles; [Client.Do] does both:
//
//	resp, err := c.Do(ctx, "https://api.example.com/users", &client.Options{
//		Method:  http.MethodPost,
//		Payload: user,
//		Headers: map[string][]string{"Content-Type": {"application/json"}},
//	})
//
// A response outside the 200..304 range rejects with a *[RejectedError]
// that carries it. Failures are classified by [ErrorKind] and reported to
// [Options.OnError].
//
// # Interceptors
//
// A Client holds a single interceptor per stage, see [Client.InterceptURL]
// and its siblings. Setting one replaces the previous.
//
// # Progress
//
// [Options.OnProgress] receives whole percentages of the upload for POST and
// PUT requests and of the download otherwise. It is called with 100 once the
// request succeeds and with 0 when it fails.
//
// For lower-level control see the
// [github.com/adamwoolhether/reqflow/client/transport] package.
package client
