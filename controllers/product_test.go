package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductOpeningStockGoesThroughLedger(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/products", obj{"name": "Widget", "unitPrice": 100, "openingStock": 5, "reorderLevel": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := decode[map[string]any](t, w)
	id := product["id"].(string)
	assert.EqualValues(t, 5, product["stock_quantity"])
	assert.Equal(t, "General", product["category"])

	movements := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/api/stock-movements?productId="+id, nil))
	require.Len(t, movements, 1)
	assert.Equal(t, "IN", movements[0]["movement_type"])
	assert.Equal(t, "OPENING", movements[0]["reference_type"])
}

func TestAdjustStock(t *testing.T) {
	env := newTestEnv(t)
	id := env.mustCreate(t, "/api/products", obj{"name": "Widget", "unitPrice": 100, "openingStock": 5})

	w := env.do(t, http.MethodPost, "/api/products/"+id+"/adjust", obj{"movementType": "OUT", "quantity": 2, "notes": "damaged"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, 3, body["product"].(map[string]any)["stock_quantity"])
	assert.Equal(t, "ADJUSTMENT", body["movement"].(map[string]any)["reference_type"])

	w = env.do(t, http.MethodGet, "/api/products/"+id, nil)
	assert.EqualValues(t, 3, decode[map[string]any](t, w)["stock_quantity"])

	w = env.do(t, http.MethodPost, "/api/products/"+id+"/adjust", obj{"movementType": "SIDEWAYS", "quantity": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/api/products/"+id+"/adjust", obj{"movementType": "IN", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/api/products/missing/adjust", obj{"movementType": "IN", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	movements := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/api/stock-movements?productId="+id, nil))
	assert.Len(t, movements, 2)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	plain := env.mustCreate(t, "/api/products", obj{"name": "Service hour", "unitPrice": 40})
	stocked := env.mustCreate(t, "/api/products", obj{"name": "Widget", "unitPrice": 100, "openingStock": 1})

	w := env.do(t, http.MethodPut, "/api/products/"+plain, obj{"unitPrice": 45.5, "taxPercent": 16})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 45.5, decode[map[string]any](t, w)["unit_price"])

	w = env.do(t, http.MethodPut, "/api/products/"+plain, obj{"taxPercent": 120})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/products/"+stocked, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodDelete, "/api/products/"+plain, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	list := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/api/products", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "Widget", list[0]["name"])
}
