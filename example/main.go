// FILE: lixenwraith/profile/example/main.go
package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/lixenwraith/profile"
)

const siteProfile = `
[libdefaults]
default_realm = "EXAMPLE.COM"
forwardable = "yes"

[realms."EXAMPLE.COM"]
kdc = ["kdc1.example.com", "kdc2.example.com"]
`

const systemProfile = `
[libdefaults]
forwardable = "no"
ticket_lifetime = "10h"

[realms."EXAMPLE.COM"]
kdc = ["kdc3.example.com"]

["domain_realm*"]
".example.com" = "EXAMPLE.COM"
`

func main() {
	dir, err := os.MkdirTemp("", "profile-example")
	if err != nil {
		log.Fatalf("❌ Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	site := filepath.Join(dir, "site.toml")
	system := filepath.Join(dir, "system.toml")
	writeFile(site, siteProfile)
	writeFile(system, systemProfile)

	// =========================================================================
	// PART 1: LAYERED LOOKUPS
	// =========================================================================
	log.Println("➡️  PART 1: Building a profile from two files (site first)...")
	p, err := profile.NewBuilder().
		WithFiles(site, system).
		WithAutoUpdate(profile.WatchOptions{Debounce: 100 * time.Millisecond}).
		Build()
	if err != nil {
		log.Fatalf("❌ Build failed: %v", err)
	}
	defer p.Close()

	kdcs, _ := p.Values("realms", "EXAMPLE.COM", "kdc")
	log.Printf("   kdc (merged): %v", kdcs)
	forwardable, _ := p.Bool("libdefaults", "forwardable")
	log.Printf("   forwardable (site wins): %t", forwardable)
	lifetime, _ := p.Duration("libdefaults", "ticket_lifetime")
	log.Printf("   ticket_lifetime (from system): %s", lifetime)

	// =========================================================================
	// PART 2: ITERATING ACROSS A RELOAD
	// =========================================================================
	log.Println("➡️  PART 2: Iterating while the site file is rewritten...")
	changes := p.Watch()
	it, err := p.Iterator([]string{"realms", "EXAMPLE.COM", "kdc"}, profile.RelationsOnly)
	if err != nil {
		log.Fatalf("❌ Iterator failed: %v", err)
	}
	defer it.Close()

	e, _, _ := it.Next()
	log.Printf("   first: %s", e.Value)

	writeFile(site, siteProfile+"\n[capaths]\n")
	select {
	case path := <-changes:
		log.Printf("✅ Watcher reloaded %s", path)
	case <-time.After(5 * time.Second):
		log.Println("⚠️  No reload notification; continuing")
	}

	for {
		e, ok, err := it.Next()
		if err != nil {
			log.Fatalf("❌ Next failed: %v", err)
		}
		if !ok {
			break
		}
		log.Printf("   next: %s", e.Value)
	}

	// =========================================================================
	// PART 3: DUMP
	// =========================================================================
	log.Println("➡️  PART 3: Dumping sources...")
	if err := p.Dump(os.Stdout); err != nil {
		log.Fatalf("❌ Dump failed: %v", err)
	}
}

func writeFile(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		log.Fatalf("❌ Failed to write %s: %v", path, err)
	}
}
