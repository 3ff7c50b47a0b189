// Package honyaku provides a cached Japanese-to-English reading aid.
//
// Honyaku translates Japanese text through an OpenAI-compatible
// chat-completion API and produces an on-demand bunsetsu/morpheme breakdown
// of the same text. Results are kept in a bounded FIFO store so repeated
// requests for the same text are served without another API call.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/honyaku"
//	    "github.com/ZaguanLabs/honyaku/cache"
//	    "github.com/ZaguanLabs/honyaku/provider"
//	)
//
//	func main() {
//	    p := provider.NewOpenAIProvider(provider.OpenAIConfig{
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	    })
//
//	    svc := honyaku.NewService(p,
//	        honyaku.WithCache(cache.NewStore(100)),
//	        honyaku.WithExtractor(p),
//	    )
//
//	    res, err := svc.Translate(context.Background(), "今日はいい天気です")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(res.Translation) // The weather is nice today.
//
//	    doc, _ := svc.Analyze(context.Background(), res.Key)
//	    fmt.Println(doc) // {"create_datetime": ..., "bunsetsu_breakdown": [...]}
//	}
package honyaku
