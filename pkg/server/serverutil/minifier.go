package serverutil

import (
	"html/template"
	"io"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/tdewolff/minify"
	minifyHTML "github.com/tdewolff/minify/html"
	minifyJS "github.com/tdewolff/minify/js"
	minifyJSON "github.com/tdewolff/minify/json"
)

var minifier *minify.M

// InitMinifier sets up the HTML/JS/JSON minifier if enabled in the site config
func InitMinifier() {
	siteConfig := config.GetSiteConfig()
	minifier = nil
	if !siteConfig.MinifyHTML && !siteConfig.MinifyJS {
		return
	}
	minifier = minify.New()
	if siteConfig.MinifyHTML {
		minifier.AddFunc("text/html", minifyHTML.Minify)
	}
	if siteConfig.MinifyJS {
		minifier.AddFunc("text/javascript", minifyJS.Minify)
		minifier.AddFunc("application/json", minifyJSON.Minify)
	}
}

func canMinify(mediaType string) bool {
	if minifier == nil {
		return false
	}
	siteConfig := config.GetSiteConfig()
	if mediaType == "text/html" && siteConfig.MinifyHTML {
		return true
	}
	if (mediaType == "application/json" || mediaType == "text/javascript") && siteConfig.MinifyJS {
		return true
	}
	return false
}

// MinifyTemplate executes the template with the given data, minifying the output if enabled
func MinifyTemplate(tmpl *template.Template, data any, writer io.Writer, mediaType string) error {
	if !canMinify(mediaType) {
		return tmpl.Execute(writer, data)
	}

	minWriter := minifier.Writer(mediaType, writer)
	if err := tmpl.Execute(minWriter, data); err != nil {
		minWriter.Close()
		return err
	}
	return minWriter.Close()
}

// MinifyWriter minifies the given writer/data (if enabled) and returns the number of bytes written and any errors
func MinifyWriter(writer io.Writer, data []byte, mediaType string) (int, error) {
	if !canMinify(mediaType) {
		return writer.Write(data)
	}

	minWriter := minifier.Writer(mediaType, writer)
	n, err := minWriter.Write(data)
	if err != nil {
		minWriter.Close()
		return n, err
	}
	return n, minWriter.Close()
}
