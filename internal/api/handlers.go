package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wallscope/internal/dex"
	"wallscope/internal/errs"
	"wallscope/internal/metrics"
)

type errorBody struct {
	Message string `json:"message"`
	Code    uint16 `json:"code"`
}

func (s *Server) abortError(c *gin.Context, err error) {
	status := errs.KindOf(err).HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, errorBody{Message: err.Error(), Code: uint16(status)})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func chainIDParam(raw string) (uint64, error) {
	if raw == "" {
		return 1, nil
	}
	chainID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errs.Newf(errs.API, "invalid chain_id %q", raw)
	}
	return chainID, nil
}

func (s *Server) walls(c *gin.Context) {
	token0 := c.Param("token0")
	token1 := c.Param("token1")
	if !common.IsHexAddress(token0) {
		s.abortError(c, errs.Newf(errs.InvalidAddress, "invalid address %q", token0))
		return
	}
	if !common.IsHexAddress(token1) {
		s.abortError(c, errs.Newf(errs.InvalidAddress, "invalid address %q", token1))
		return
	}

	dexFilter := c.Query("dex")
	if dexFilter != "" && !dex.Known(dexFilter) {
		s.abortError(c, errs.Newf(errs.UnknownDEX, "unknown dex %q", dexFilter))
		return
	}

	chainID, err := chainIDParam(c.Query("chain_id"))
	if err != nil {
		s.abortError(c, err)
		return
	}

	started := time.Now()
	resp, err := s.aggregator.Walls(c.Request.Context(), token0, chainID, dexFilter)
	metrics.WallsQueryDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) token(c *gin.Context) {
	chainID, err := chainIDParam(c.Param("chain_id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		s.abortError(c, errs.Newf(errs.InvalidAddress, "invalid address %q", address))
		return
	}

	token, err := s.store.GetToken(c.Request.Context(), chainID, address)
	if err != nil {
		s.abortError(c, err)
		return
	}
	if token == nil {
		s.abortError(c, errs.New(errs.NotFound, "token not found"))
		return
	}
	c.JSON(http.StatusOK, token)
}

func (s *Server) pools(c *gin.Context) {
	dexName := c.Param("dex")
	if !dex.Known(dexName) {
		s.abortError(c, errs.Newf(errs.UnknownDEX, "unknown dex %q", dexName))
		return
	}
	chainID, err := chainIDParam(c.Param("chain_id"))
	if err != nil {
		s.abortError(c, err)
		return
	}

	limit := 1000
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	pools, err := s.store.ListPools(c.Request.Context(), dexName, chainID, limit, offset)
	if err != nil {
		s.abortError(c, err)
		return
	}
	addresses := make([]string, 0, len(pools))
	for _, pool := range pools {
		addresses = append(addresses, pool.Address)
	}
	c.JSON(http.StatusOK, addresses)
}
