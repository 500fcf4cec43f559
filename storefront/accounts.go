package storefront

import (
	"errors"
	"net/http"

	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) loginForm(c *gin.Context) {
	s.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Next": c.Query("next")})
}

func (s *Server) login(c *gin.Context) {
	next := c.DefaultPostForm("next", c.Query("next"))
	form := gin.H{"Title": "Log in", "Next": next, "Username": c.PostForm("username")}

	if !s.limiter.Allow(c.ClientIP()) {
		s.metrics.LoginAttempts.WithLabelValues("throttled").Inc()
		s.logger.Warn("Login rate limit exceeded", zap.String("client_ip", c.ClientIP()))
		form["Error"] = "Too many login attempts. Try again shortly."
		s.render(c, http.StatusTooManyRequests, "login.html", form)
		return
	}

	_, token, err := s.services.Accounts.Authenticate(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			s.metrics.LoginAttempts.WithLabelValues("rejected").Inc()
			form["Error"] = "Please enter a correct username and password."
			s.render(c, http.StatusBadRequest, "login.html", form)
			return
		}
		s.fail(c, err)
		return
	}

	s.metrics.LoginAttempts.WithLabelValues("accepted").Inc()
	s.startSession(c, token)
	c.Redirect(http.StatusFound, safeNext(next))
}

func (s *Server) logout(c *gin.Context) {
	s.clearSession(c)
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) registerForm(c *gin.Context) {
	s.render(c, http.StatusOK, "register.html", gin.H{"Title": "Sign up"})
}

func (s *Server) register(c *gin.Context) {
	in := service.RegisterInput{
		Username:    c.PostForm("username"),
		Email:       c.PostForm("email"),
		Password:    c.PostForm("password"),
		DisplayName: c.PostForm("display_name"),
	}
	form := gin.H{"Title": "Sign up", "Username": in.Username, "Email": in.Email}

	if in.Password != c.PostForm("password_confirm") {
		form["Error"] = "The two password fields didn't match."
		s.render(c, http.StatusBadRequest, "register.html", form)
		return
	}

	if _, err := s.services.Accounts.Register(c.Request.Context(), in); err != nil {
		if errors.Is(err, service.ErrUsernameTaken) || errors.Is(err, service.ErrInvalidAccount) {
			form["Error"] = err.Error()
			s.render(c, http.StatusBadRequest, "register.html", form)
			return
		}
		s.fail(c, err)
		return
	}

	_, token, err := s.services.Accounts.Authenticate(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.startSession(c, token)
	c.Redirect(http.StatusFound, "/")
}
