// Package prodsearch is a Go client for the prodsearch HTTP API.
//
// # Search and answers
//
//	client, _ := prodsearch.New("http://localhost:8080", prodsearch.WithAPIKey(key))
//	res, _ := client.Search(ctx, prodsearch.SearchRequest{
//	    Query:     "wireless headphones under $100",
//	    MinRating: prodsearch.Float(4),
//	})
//	ans, _ := client.Ask(ctx, "which blender is quietest?")
//
// # Chat and recommendations
//
//	reply, _ := client.Chat(ctx, "recommend something for me", "user-42")
//	recs, _ := client.Recommendations(ctx, "user-42", 5)
//
// Errors returned by the server carry a stable code and unwrap to the
// sentinel for that code, so errors.Is(err, prodsearch.ErrProductNotFound)
// works across the wire.
package prodsearch
