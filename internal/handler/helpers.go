package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"vlstore/internal/apierror"
	"vlstore/internal/middleware"
	"vlstore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is validated as a float so that min=0, gt=0 and
	// required work on money fields.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Field names in error bodies follow the json tag.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// bindAndValidate binds the JSON body and runs go-playground/validator tags.
// Returns false after writing the error response; the caller must return.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON inválido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, filter interface{}) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parâmetros inválidos: "+err.Error()))
		return false
	}
	return validar(c, filter)
}

func validar(c *gin.Context, v interface{}) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[campo(fe)] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// campo drops the root struct name from the namespace: "itens[0].quantidade".
func campo(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// paramID parses the :id path parameter. Writes 400 and returns false when
// it is not a UUID.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return uuid.Nil, false
	}
	return id, true
}

// atorFromContext builds the service caller from the JWT claims.
func atorFromContext(c *gin.Context) service.Ator {
	ator := service.Ator{IP: c.ClientIP()}
	claims := middleware.GetClaims(c)
	if claims == nil {
		return ator
	}
	ator.UsuarioID, _ = uuid.Parse(claims.UserID)
	ator.Username = claims.Username
	ator.Role = claims.Role
	if claims.LojaID != nil && *claims.LojaID != "" {
		if id, err := uuid.Parse(*claims.LojaID); err == nil {
			ator.LojaID = &id
		}
	}
	return ator
}

// respondError maps service error categories to HTTP status codes. Anything
// uncategorised is logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNaoEncontrado):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflito):
		status = http.StatusConflict
	case errors.Is(err, service.ErrRegraNegocio):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrCredenciais):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrProibido):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		log.Error().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Err(err).
			Msg("handler: unexpected error")
		c.JSON(status, apierror.New("Erro interno do servidor"))
		return
	}
	c.JSON(status, apierror.New(err.Error()))
}
