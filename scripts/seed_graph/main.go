package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/falkordb/falkordb-mcp/core/infrastructure/falkordb"
)

func main() {
	var (
		host  string
		port  int
		graph string
		count int
	)
	flag.StringVar(&host, "host", "localhost", "FalkorDB host")
	flag.IntVar(&port, "port", 6379, "FalkorDB port")
	flag.StringVar(&graph, "graph", "social", "Graph name")
	flag.IntVar(&count, "count", 25, "Number of people to generate")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := falkordb.NewStore(falkordb.Options{Host: host, Port: port, DialTimeout: 5 * time.Second})
	defer store.Close()

	cities := []string{"Tel Aviv", "Berlin", "Lisbon", "Austin"}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < count; i++ {
		_, err := store.Execute(ctx, "CREATE (:Person {id: $id, name: $name, age: $age, city: $city})", map[string]any{
			"id":   i,
			"name": fmt.Sprintf("person_%03d", i),
			"age":  18 + rng.Intn(60),
			"city": cities[rng.Intn(len(cities))],
		}, graph)
		if err != nil {
			panic(fmt.Errorf("create person failed: %w", err))
		}
	}

	edges := 0
	for i := 0; i < count; i++ {
		for j := 0; j < 2 && count > 1; j++ {
			other := rng.Intn(count)
			if other == i {
				continue
			}
			res, err := store.Execute(ctx,
				"MATCH (a:Person {id: $from}), (b:Person {id: $to}) CREATE (a)-[:KNOWS {since: $since}]->(b) RETURN count(*) AS created",
				map[string]any{"from": i, "to": other, "since": 2000 + rng.Intn(25)}, graph)
			if err != nil {
				panic(fmt.Errorf("create relationship failed: %w", err))
			}
			edges += len(res.Data)
		}
	}

	fmt.Printf("created %d people and %d relationships in graph %s\n", count, edges, graph)
	fmt.Println("example query: MATCH (p:Person)-[:KNOWS]->(f) RETURN p.name, f.name LIMIT 5")
}
