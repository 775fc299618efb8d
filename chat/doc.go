// Package chat contains the live chat polling loop and the provider-neutral
// message types it moves around.
//
// It provides:
//   - Provider: the narrow capability set the loop needs from a chat platform
//     (list own broadcasts, fetch a chat page, delete and post messages).
//   - SelectSession: picks the live chat to moderate from the broadcasts owned
//     by the authenticated account (always the first one).
//   - Fetcher: fetches the provider's current window (at most MaxPageSize
//     messages) and skips the messages already consumed, returning only the
//     new suffix plus the advised polling interval.
//   - Normalize: validates a RawMessage into a Message, naming the missing field
//     when it cannot.
//   - Poller: the fetch/drain/advance/wait cycle. Per-message failures are
//     logged and skipped; only a FetchError stops the loop.
//
// Pagination is a client-side skip over the first page of the provider's
// retained window. Once a session has produced more than MaxPageSize messages,
// newer messages fall outside that page and are not seen. The fetcher logs a
// warning when a page comes back full so the bound is visible in operation.
package chat
