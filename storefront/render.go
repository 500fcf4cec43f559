package storefront

import (
	"errors"
	"html/template"
	"net/http"
	"path"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func templateFuncs(mediaURL string) template.FuncMap {
	return template.FuncMap{
		"price": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"media": func(name string) string {
			if name == "" {
				return ""
			}
			return path.Join(mediaURL, name)
		},
	}
}

// render executes a page template with the signed-in user available as .User.
func (s *Server) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if p, ok := auth.FromContext(c.Request.Context()); ok {
		data["User"] = p
	}
	c.HTML(status, name, data)
}

// fail renders the error page for err. Not found errors get a 404; anything
// unexpected is logged and shown as a 500.
func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		s.render(c, http.StatusNotFound, "error.html", gin.H{"Title": "Not found", "Message": err.Error()})
		return
	}

	s.logger.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	s.render(c, http.StatusInternalServerError, "error.html", gin.H{"Title": "Error", "Message": "Something went wrong."})
}
