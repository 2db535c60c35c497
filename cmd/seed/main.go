package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/mirabellier/backend/internal/client"
)

var users = []struct {
	name string
	pass string
}{
	{"mirabellier", "changeme-1"},
	{"plumfan", "changeme-2"},
	{"nightowl", "changeme-3"},
}

var posts = []struct {
	title string
	desc  string
	tags  []string
}{
	{"Hello world", "The first post on the new backend", []string{"meta"}},
	{"Rebuilding my site in Go", "Notes from porting the backend", []string{"go", "devlog"}},
	{"Winter anime roundup", "What I watched this season", []string{"anime"}},
	{"Photo diary: Kyoto", "A week of temples and trains", []string{"travel", "photos"}},
}

var comments = []string{
	"Love this one!",
	"Great write-up, thanks for sharing.",
	"Adding this to my watch list.",
	"The photos came out really well.",
	"More posts like this please.",
}

func main() {
	baseURL := flag.String("url", "http://localhost:5000", "Mirabellier server URL")
	flag.Parse()

	clients := make([]*client.Client, 0, len(users))
	for _, u := range users {
		c := client.New(*baseURL)
		if _, err := c.Register(u.name, u.pass); err != nil {
			// Re-running the seed against an existing database: log in instead.
			if _, err := c.Login(u.name, u.pass); err != nil {
				log.Fatalf("seed user %s: %v", u.name, err)
			}
		}
		clients = append(clients, c)
		fmt.Printf("user ready: %s\n", u.name)
	}

	author := clients[0]
	for _, p := range posts {
		content := json.RawMessage(fmt.Sprintf(`{"blocks":[{"type":"paragraph","text":%q}]}`, p.desc))
		post, err := author.CreatePost(p.title, content, p.desc, p.tags)
		if err != nil {
			log.Fatalf("seed post %q: %v", p.title, err)
		}
		fmt.Printf("post created: %s\n", post.Title)

		for _, c := range clients[1:] {
			if rand.Intn(2) == 0 {
				if _, err := c.Like(post.ID, "like"); err != nil {
					log.Fatalf("seed like: %v", err)
				}
			}
			if _, err := c.Comment(post.ID, comments[rand.Intn(len(comments))], nil); err != nil {
				log.Fatalf("seed comment: %v", err)
			}
		}
	}

	fmt.Println("done. promote a user to curator in the database to seed the anime list.")
}
