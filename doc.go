// Package mdpost renders blog posts written as Markdown, Jupyter notebooks
// or percent-format scripts into publish-ready Markdown, with the console
// output of their code blocks inlined.
//
// # Quick Start
//
// Create a renderer, render a post, and close when done:
//
//	r, err := mdpost.NewRenderer(mdpost.WithLocalServer())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	res, err := r.Render(ctx, mdpost.Input{Path: "posts/my-post/post.md"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("content/my-post.md", []byte(res.Markdown), 0o644)
//
// The directory holding the source is the canonical name of the post; it
// prefixes image links and names the output file.
//
// # Rendering Pipeline
//
// A render follows these stages:
//
//  1. Ingest: notebooks and percent scripts become Markdown
//  2. Validate: title and description are required, level-1 headings are not
//  3. Expand: {{ expand('file.py') }} directives inline source files
//  4. Execute: annotated fences run in order on one fresh interpreter, or
//     outputs are taken from a paired executed notebook
//  5. Reinsert: each executed fence is followed by its console output
//  6. Publish: date stamp, image prefixes, footer and link campaign
//
// A fence runs when it has an info string and is not marked skip:
//
//	```python id=load,hide=true
//	import pandas as pd
//	```
//
// Errors raised by the post's own code are console output, not failures.
//
// # Post Settings
//
// The front matter may hold an mdpost section:
//
//	---
//	title: My post
//	description: What it is about
//	mdpost:
//	  execute_code: true
//	  allow_expand: true
//	  serialize_images: true
//	---
//
// # Interpreters
//
// Code runs on a Jupyter Server kernel, either one already running
// (WithJupyterServer) or one started on demand (WithLocalServer). Tests and
// embedders can plug any Backend with WithBackendFactory.
//
// # Parallel Processing
//
// RenderAll renders many posts concurrently, each with its own
// interpreter:
//
//	results := r.RenderAll(ctx, inputs, 0) // 0 sizes the pool from GOMAXPROCS
package mdpost
