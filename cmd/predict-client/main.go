package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/aigoflow/news-classifier/pkg/client"
)

func main() {
	var (
		natsURL     = flag.String("nats", "nats://127.0.0.1:4222", "NATS server URL")
		model       = flag.String("model", "news-classifier", "Model name")
		source      = flag.String("source", "Yahoo Entertainment", "Article source")
		url         = flag.String("url", "http://example.com", "Article URL")
		title       = flag.String("title", "Music Patriarch Marsalis Sr. Dies (AP)", "Article title")
		description = flag.String("description", "AP - Ellis L. Marsalis Sr., the patriarch of a family of world famous jazz musicians, including grandson Wynton Marsalis, has died. He was 96.", "Article description")
		health      = flag.Bool("health", false, "Only check model health")
		timeout     = flag.Duration("timeout", 30*time.Second, "Request timeout")
	)
	flag.Parse()

	c, err := client.NewNATSClient(*natsURL, "predict-client")
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()
	c.SetTimeout(*timeout)

	ctx := context.Background()

	if *health {
		status, err := c.CheckHealth(ctx, *model)
		if err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		printJSON(status)
		return
	}

	start := time.Now()
	reply, err := c.Predict(ctx, *model, client.Article{
		Source:      *source,
		URL:         *url,
		Title:       *title,
		Description: *description,
	})
	if err != nil {
		if reply != nil {
			printJSON(reply)
		}
		log.Fatalf("Prediction failed: %v", err)
	}

	fmt.Printf("label: %s (req_id %s, %v)\n", reply.Label, reply.ReqID, time.Since(start).Round(time.Millisecond))
	labels := make([]string, 0, len(reply.Scores))
	for l := range reply.Scores {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return reply.Scores[labels[i]] > reply.Scores[labels[j]] })
	for _, l := range labels {
		fmt.Printf("  %-16s %.4f\n", l, reply.Scores[l])
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
