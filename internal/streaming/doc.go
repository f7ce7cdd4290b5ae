/*
Package streaming writes HTTP response bodies with per-chunk write deadlines.

The gallery server runs with no global WriteTimeout so that large images
reach slow clients. Write compensates: it splits a body into chunks and sets
a fresh write deadline through http.ResponseController before each one, so a
client that stops reading is dropped after one WriteTimeout instead of
holding the connection forever.

	n, err := streaming.Write(r.Context(), w, blob.Data, streaming.DefaultConfig())
	if errors.Is(err, streaming.ErrWriteTimeout) {
		// client stalled
	}

Headers must be written before calling Write.
*/
package streaming
