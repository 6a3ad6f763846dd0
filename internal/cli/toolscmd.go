package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jonwraymond/tooldiscovery/tooldoc"
)

// toolView is the printed shape of a catalog entry or search hit.
type toolView struct {
	ID          string   `json:"id" yaml:"id"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// docView is the printed shape of a tool description.
type docView struct {
	ID       string        `json:"id" yaml:"id"`
	Title    string        `json:"title,omitempty" yaml:"title,omitempty"`
	Summary  string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	Notes    string        `json:"notes,omitempty" yaml:"notes,omitempty"`
	Examples []exampleView `json:"examples,omitempty" yaml:"examples,omitempty"`
}

type exampleView struct {
	Title string         `json:"title" yaml:"title"`
	Args  map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
}

func runTools(args []string, streams Streams) error {
	var describe string
	var limit int
	e, err := parse("tools", args, streams, func(fs *flag.FlagSet) {
		fs.StringVar(&describe, "describe", "", "describe one tool by name or ID")
		fs.IntVar(&limit, "limit", 10, "maximum search results")
	})
	if e == nil {
		return err
	}

	catalog, err := newCatalog(e.cfg, e.logger)
	if err != nil {
		return err
	}

	if describe != "" {
		doc, err := catalog.Describe(describe, tooldoc.DetailFull)
		if err != nil {
			return &ExitError{Code: 1, Message: err.Error()}
		}
		view := docView{ID: describe, Summary: doc.Summary, Notes: doc.Notes}
		if doc.Tool != nil {
			view.ID = doc.Tool.Namespace + ":" + doc.Tool.Name
			view.Title = doc.Tool.Title
		}
		examples, err := catalog.Examples(view.ID, 5)
		if err != nil {
			return err
		}
		for _, ex := range examples {
			view.Examples = append(view.Examples, exampleView{Title: ex.Title, Args: ex.Args})
		}
		return writeDoc(streams.Out, e.cfg.Format, view)
	}

	var views []toolView
	if query := strings.Join(e.fs.Args(), " "); query != "" {
		hits, err := catalog.Search(query, limit)
		if err != nil {
			return err
		}
		for _, h := range hits {
			views = append(views, toolView{ID: h.ID, Description: h.ShortDescription, Tags: h.Tags})
		}
	} else {
		for _, def := range catalog.Defs() {
			views = append(views, toolView{ID: def.ID(), Description: def.Description, Tags: def.Tool().Tags})
		}
	}
	return writeTools(streams.Out, e.cfg.Format, views)
}

func writeTools(w io.Writer, format string, views []toolView) error {
	if format == "json" || format == "yaml" {
		if views == nil {
			views = []toolView{}
		}
		return encode(w, format, views)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\n", v.ID, v.Description)
	}
	return tw.Flush()
}

func writeDoc(w io.Writer, format string, view docView) error {
	if format == "json" || format == "yaml" {
		return encode(w, format, view)
	}
	fmt.Fprintf(w, "%s", view.ID)
	if view.Title != "" {
		fmt.Fprintf(w, " (%s)", view.Title)
	}
	fmt.Fprintln(w)
	if view.Summary != "" {
		fmt.Fprintf(w, "  %s\n", view.Summary)
	}
	if view.Notes != "" {
		fmt.Fprintf(w, "  %s\n", view.Notes)
	}
	for _, ex := range view.Examples {
		fmt.Fprintf(w, "  example: %s %v\n", ex.Title, ex.Args)
	}
	return nil
}
