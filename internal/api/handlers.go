package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/pick-terminal/internal/application"
	"github.com/wms-platform/pick-terminal/pkg/logging"
	"github.com/wms-platform/pick-terminal/pkg/middleware"
)

type applyDeltaRequest struct {
	Delta int `json:"delta" binding:"required,pick_delta"`
}

type pickUnitsRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=1000"`
}

type scanRequest struct {
	Barcode    string `json:"barcode" binding:"required,barcode"`
	DocumentID string `json:"documentId" binding:"omitempty,doc_id"`
}

// documentParam reads and validates the :documentId path parameter. It
// writes the error response itself and reports false when the id is invalid.
func documentParam(c *gin.Context, responder *middleware.ErrorResponder) (string, bool) {
	documentID := c.Param("documentId")
	if appErr := middleware.ValidateVar("documentId", documentID, "required,doc_id"); appErr != nil {
		responder.RespondWithAppError(appErr)
		return "", false
	}
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"document.id": documentID,
	})
	return documentID, true
}

func respondError(responder *middleware.ErrorResponder, err error) {
	responder.RespondWithAppError(toAppError(err))
}

func loadDocumentHandler(service *application.TerminalService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		documentID, ok := documentParam(c, responder)
		if !ok {
			return
		}

		doc, err := service.LoadDocument(c.Request.Context(), application.LoadDocumentCommand{DocumentID: documentID})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

func getDocumentHandler(service *application.TerminalService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		documentID, ok := documentParam(c, responder)
		if !ok {
			return
		}

		doc, err := service.GetDocument(c.Request.Context(), application.GetDocumentQuery{DocumentID: documentID})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

func closeSessionHandler(service *application.TerminalService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		documentID, ok := documentParam(c, responder)
		if !ok {
			return
		}

		if err := service.CloseSession(c.Request.Context(), application.CloseSessionCommand{DocumentID: documentID}); err != nil {
			respondError(responder, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func applyDeltaHandler(service *application.TerminalService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		documentID, ok := documentParam(c, responder)
		if !ok {
			return
		}
		lineID := c.Param("lineId")

		var req applyDeltaRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"line.id":    lineID,
			"pick.delta": req.Delta,
		})

		doc, err := service.ApplyDelta(c.Request.Context(), application.ApplyDeltaCommand{
			DocumentID: documentID,
			LineID:     lineID,
			Delta:      req.Delta,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

func pickUnitsHandler(service *application.TerminalService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		documentID, ok := documentParam(c, responder)
		if !ok {
			return
		}
		lineID := c.Param("lineId")

		var req pickUnitsRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"line.id":       lineID,
			"pick.quantity": req.Quantity,
		})

		result, err := service.PickUnits(c.Request.Context(), application.PickUnitsCommand{
			DocumentID: documentID,
			LineID:     lineID,
			Quantity:   req.Quantity,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func completionStatusHandler(service *application.TerminalService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		documentID, ok := documentParam(c, responder)
		if !ok {
			return
		}

		status, err := service.CompletionStatus(c.Request.Context(), application.CompletionStatusQuery{DocumentID: documentID})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, status)
	}
}

func completeDocumentHandler(service *application.TerminalService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		documentID, ok := documentParam(c, responder)
		if !ok {
			return
		}

		doc, err := service.Complete(c.Request.Context(), application.CompleteDocumentCommand{DocumentID: documentID})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

func scanHandler(service *application.TerminalService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req scanRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"scan.barcode": req.Barcode,
			"document.id":  req.DocumentID,
		})

		result, err := service.Scan(c.Request.Context(), application.ScanCommand{
			Barcode:    req.Barcode,
			DocumentID: req.DocumentID,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func productByBarcodeHandler(service *application.TerminalService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		barcode := c.Param("barcode")
		if appErr := middleware.ValidateVar("barcode", barcode, "required,barcode"); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		result, err := service.LookupProduct(c.Request.Context(), application.ProductByBarcodeQuery{Barcode: barcode})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
