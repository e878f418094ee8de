package gateway

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bridgecore/coordinator/internal/metrics"
	"github.com/bridgecore/coordinator/pkg/authproof"
	"github.com/bridgecore/coordinator/pkg/bridge"
	"github.com/bridgecore/coordinator/pkg/coordinator"
	"github.com/bridgecore/coordinator/pkg/errs"
	"github.com/bridgecore/coordinator/pkg/store"
)

// commissionNumerator/commissionDenominator implement the bps=40
// cancellation commission (§9): commission = amount * 4 / 1000,
// truncated.
var (
	commissionNumerator   = uint256.NewInt(4)
	commissionDenominator = uint256.NewInt(1000)
)

type handlers struct {
	coordinator *coordinator.Coordinator
	logger      *zap.Logger
}

func (h *handlers) registerRoutes(r chi.Router) {
	r.Get("/networks", handleError(h.connectedNetworks))
	r.Get("/tokens", handleError(h.supportedTokens))
	r.Get("/transfers", handleError(h.transfer))
	r.Get("/transfers/history", handleError(h.transferHistory))
	r.Post("/transfers/{id}/cancel", handleError(h.cancelTransfer))
	r.Post("/transfers/bridge-in-signature", handleError(h.bridgeInSignature))
	r.Post("/transfers/estimate", handleError(h.estimateTransfer))
}

// --- connected_networks ---

type networkDTO struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	IsTestnet bool   `json:"is_testnet"`
}

func (h *handlers) connectedNetworks(w http.ResponseWriter, _ *http.Request) error {
	networks := h.coordinator.NetworkRegistry().All()

	dtos := make([]networkDTO, 0, len(networks))
	for _, n := range networks {
		dtos = append(dtos, networkDTO{
			ID:        uint32(n.ID),
			Name:      n.Name,
			Type:      n.Type.String(),
			IsTestnet: n.IsTestnet,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"networks": dtos})
	return nil
}

// --- supported_tokens ---

type tokenDTO struct {
	ID        uint32 `json:"id"`
	ShortName string `json:"short_name"`
	LongName  string `json:"long_name"`
	Address   string `json:"address"`
	Decimals  uint8  `json:"decimals"`
}

func (h *handlers) supportedTokens(w http.ResponseWriter, r *http.Request) error {
	networkID, err := parseUintQuery(r, "network_id")
	if err != nil {
		return err
	}

	tokensWithNetwork := h.coordinator.TokenRegistry().TokensByNetwork(bridge.NetworkID(networkID))

	dtos := make([]tokenDTO, 0, len(tokensWithNetwork))
	for _, tn := range tokensWithNetwork {
		address, err := h.coordinator.StringifyAddress(tn.Network.Contract)
		if err != nil {
			return errs.Registry(err, "could not stringify contract address")
		}
		dtos = append(dtos, tokenDTO{
			ID:        uint32(tn.Token.ID),
			ShortName: tn.Token.ShortName,
			LongName:  tn.Token.LongName,
			Address:   address.Address,
			Decimals:  tn.Network.Decimals,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"tokens": dtos})
	return nil
}

// --- transfer ---

type transferDTO struct {
	ID            uint64 `json:"id"`
	Amount        string `json:"amount"`
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	Status        string `json:"status"`
	TriggeringTx  string `json:"triggering_tx"`
	OutboundTx    string `json:"outbound_tx,omitempty"`
	SeenAtUnix    int64  `json:"seen_at_unix"`
}

func (h *handlers) mapTransfer(row store.TransferWithHashes) (transferDTO, error) {
	sender, err := h.coordinator.StringifyAddress(bridge.NewAddress(bridge.NetworkID(row.SenderNetworkID), row.SenderAddress))
	if err != nil {
		return transferDTO{}, errs.Registry(err, "could not stringify sender address")
	}

	recipient, err := h.coordinator.StringifyAddress(bridge.NewAddress(bridge.NetworkID(row.RecipientNetworkID), row.RecipientAddress))
	if err != nil {
		return transferDTO{}, errs.Registry(err, "could not stringify recipient address")
	}

	triggeringTx, err := h.coordinator.StringifyTxHash(bridge.NewTxHash(bridge.NetworkID(row.SenderNetworkID), row.SourceTxHash))
	if err != nil {
		return transferDTO{}, errs.Registry(err, "could not stringify triggering tx hash")
	}

	dto := transferDTO{
		ID:           row.ID,
		Amount:       row.Amount,
		Sender:       sender.String(),
		Recipient:    recipient.String(),
		Status:       row.Status,
		TriggeringTx: triggeringTx.String(),
		SeenAtUnix:   row.SeenAt.Unix(),
	}

	if row.OutboundTx != nil && len(row.DestTxHash) > 0 {
		outboundTx, err := h.coordinator.StringifyTxHash(bridge.NewTxHash(bridge.NetworkID(row.RecipientNetworkID), row.DestTxHash))
		if err != nil {
			return transferDTO{}, errs.Registry(err, "could not stringify outbound tx hash")
		}
		dto.OutboundTx = outboundTx.String()
	}

	return dto, nil
}

func (h *handlers) transfer(w http.ResponseWriter, r *http.Request) error {
	network := r.URL.Query().Get("network")
	hashText := r.URL.Query().Get("tx_hash")
	if network == "" || hashText == "" {
		return errs.Registry(nil, "network and tx_hash query parameters are required")
	}

	hash, err := h.coordinator.ParseTxHash(bridge.StringTxHash{NetworkName: network, Hash: hashText})
	if err != nil {
		return errs.Registry(err, "invalid tx_hash")
	}

	read, err := h.coordinator.Store().ReadTx(r.Context())
	if err != nil {
		return errs.Database(err, "database error")
	}
	defer read.Discard()

	rows, err := read.FindTransfersByHash(r.Context(), hash)
	if err != nil {
		return errs.Database(err, "database error")
	}

	dtos := make([]transferDTO, 0, len(rows))
	for _, row := range rows {
		dto, err := h.mapTransfer(row)
		if err != nil {
			return err
		}
		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, map[string]any{"statuses": dtos})
	return nil
}

// --- transfer_history ---

func (h *handlers) transferHistory(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()

	networkID, err := parseUintQuery(r, "network_id")
	if err != nil {
		return err
	}
	limit, err := parseUintQueryDefault(r, "limit", 50)
	if err != nil {
		return err
	}
	offset, err := parseUintQueryDefault(r, "offset", 0)
	if err != nil {
		return err
	}

	signature, err := decodeHex(query.Get("signature"))
	if err != nil {
		return errs.Crypto(err, "invalid signature encoding")
	}
	publicKey, err := parseOptionalHexQuery(query.Get("public_key"))
	if err != nil {
		return errs.Crypto(err, "invalid public key encoding")
	}

	address, err := h.verifyAuth(bridge.NetworkID(networkID), signature, publicKey)
	if err != nil {
		return err
	}

	read, err := h.coordinator.Store().ReadTx(r.Context())
	if err != nil {
		return errs.Database(err, "database error")
	}
	defer read.Discard()

	total, err := read.CountTransfersForSender(r.Context(), address)
	if err != nil {
		return errs.Database(err, "database error")
	}

	rows, err := read.FindTransfersBySenderPaged(r.Context(), address, limit, offset)
	if err != nil {
		return errs.Database(err, "database error")
	}

	dtos := make([]transferDTO, 0, len(rows))
	for _, row := range rows {
		dto, err := h.mapTransfer(row)
		if err != nil {
			return err
		}
		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, map[string]any{"statuses": dtos, "total_size": total})
	return nil
}

// --- cancel_transfer ---

type cancelTransferRequest struct {
	NetworkID uint32 `json:"network_id"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key,omitempty"`
}

type cancelTransferResponse struct {
	Signature string `json:"signature"`
	Nonce     uint64 `json:"nonce"`
}

func (h *handlers) cancelTransfer(w http.ResponseWriter, r *http.Request) error {
	transferID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return errs.Registry(err, "invalid transfer id")
	}

	var req cancelTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	signature, err := decodeHex(req.Signature)
	if err != nil {
		return errs.Crypto(err, "invalid signature encoding")
	}
	publicKey, err := parseOptionalHexQuery(req.PublicKey)
	if err != nil {
		return errs.Crypto(err, "invalid public key encoding")
	}

	networkID := bridge.NetworkID(req.NetworkID)
	address, err := h.verifyAuth(networkID, signature, publicKey)
	if err != nil {
		return err
	}

	ctx := r.Context()
	read, err := h.coordinator.Store().ReadTx(ctx)
	if err != nil {
		return errs.Database(err, "database error")
	}
	details, err := read.FindTransferDetailsByTransferID(ctx, transferID)
	read.Discard()
	if err != nil {
		return errs.Database(err, "database error")
	}
	if details == nil {
		return errs.Registry(nil, "couldn't find transfer")
	}

	if !address.Equal(bridge.NewAddress(networkID, details.SenderAddress)) {
		return errs.Crypto(nil, "sender doesn't match signature address")
	}

	tokenNetwork, err := h.coordinator.TokenRegistry().TokenNetworkByIDs(bridge.TokenID(details.TokenID), networkID)
	if err != nil {
		return errs.Registry(err, "no such token id")
	}

	amount, err := parseStoredAmount(details.Amount)
	if err != nil {
		return errs.Database(err, "corrupt stored amount")
	}

	commission, overflow := new(uint256.Int).MulDivOverflow(amount, commissionNumerator, commissionDenominator)
	if overflow {
		return errs.General(nil, "commission computation overflowed")
	}
	remaining, underflow := new(uint256.Int).SubOverflow(amount, commission)
	if underflow {
		return errs.General(nil, "commission exceeds amount")
	}

	if err := h.coordinator.CancelTransfer(transferID); err != nil {
		return errs.Connector(err, "cannot cancel")
	}

	conn, err := h.coordinator.Connector(networkID)
	if err != nil {
		return errs.Registry(err, "no such network id")
	}

	write, err := h.coordinator.Store().WriteTx(ctx)
	if err != nil {
		return errs.Database(err, "database error")
	}
	defer write.Discard()

	nonce, err := write.IncrementNonce(ctx, networkID)
	if err != nil {
		return errs.Database(err, "database error")
	}

	signed, err := conn.CancelSignature(ctx, tokenNetwork.Contract, address, nonce, commission, remaining)
	if err != nil {
		return errs.Connector(err, "could not generate cancel signature")
	}

	if err := write.UpdateTransferStatus(ctx, transferID, bridge.TransferStatusCancelled); err != nil {
		return errs.Database(err, "could not update transfer status")
	}
	if err := write.Commit(); err != nil {
		return errs.Database(err, "could not commit changes")
	}

	metrics.TransfersTotal.WithLabelValues("in", string(bridge.TransferStatusCancelled)).Inc()

	writeJSON(w, http.StatusOK, cancelTransferResponse{
		Signature: hexString(signed.Signature),
		Nonce:     signed.Nonce,
	})
	return nil
}

// --- bridge_in_signature ---

type addressDTO struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

type bridgeInSignatureRequest struct {
	Sender      addressDTO `json:"sender"`
	TokenID     uint32     `json:"token_id"`
	Amount      string     `json:"amount"`
	Destination addressDTO `json:"destination"`
}

type bridgeInSignatureResponse struct {
	Signature string `json:"signature"`
	Nonce     uint64 `json:"nonce"`
	ExpiresAt int64  `json:"expires_at"`
}

func (h *handlers) bridgeInSignature(w http.ResponseWriter, r *http.Request) error {
	var req bridgeInSignatureRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	sender, err := h.coordinator.ParseAddress(bridge.StringAddress{NetworkName: req.Sender.Network, Address: req.Sender.Address})
	if err != nil {
		return errs.Registry(err, "sender is invalid")
	}

	destination := bridge.StringAddress{NetworkName: req.Destination.Network, Address: req.Destination.Address}

	tokenNetwork, err := h.coordinator.TokenRegistry().TokenNetworkByIDs(bridge.TokenID(req.TokenID), sender.NetworkID)
	if err != nil {
		return errs.Registry(err, "no such token id")
	}

	amount, err := parseWireAmount(req.Amount)
	if err != nil {
		return errs.Registry(err, "amount is invalid")
	}

	conn, err := h.coordinator.Connector(sender.NetworkID)
	if err != nil {
		return errs.Registry(err, "connector is missing for the given network id")
	}

	ctx := r.Context()
	write, err := h.coordinator.Store().WriteTx(ctx)
	if err != nil {
		return errs.Database(err, "database error")
	}
	defer write.Discard()

	nonce, err := write.IncrementNonce(ctx, sender.NetworkID)
	if err != nil {
		return errs.Database(err, "database error")
	}
	if err := write.Commit(); err != nil {
		return errs.Database(err, "database error")
	}

	signed, err := conn.BridgeInSignature(ctx, sender, tokenNetwork.Contract, nonce, amount, destination, new(uint256.Int))
	if err != nil {
		return errs.Connector(err, "cannot get signature")
	}

	writeJSON(w, http.StatusOK, bridgeInSignatureResponse{
		Signature: hexString(signed.Signature),
		Nonce:     signed.Nonce,
		ExpiresAt: signed.ExpiresAt,
	})
	return nil
}

// --- estimate_transfer ---

type estimateTransferRequest struct {
	SenderNetwork    string `json:"sender_network"`
	RecipientNetwork string `json:"recipient_network"`
}

type estimateTransferResponse struct {
	Fee                   string `json:"fee"`
	FeePercentage         string `json:"fee_percentage"`
	EstimatedConfirmation int64  `json:"estimated_confirmation"`
}

// estimatedConfirmationSeconds is the fixed stub value the original
// implementation returns regardless of network (§4.8).
const estimatedConfirmationSeconds = 60

func (h *handlers) estimateTransfer(w http.ResponseWriter, r *http.Request) error {
	var req estimateTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	recipientMetadata, err := h.coordinator.NetworkRegistry().ByName(req.RecipientNetwork)
	if err != nil {
		return errs.Registry(err, "invalid recipient network name")
	}
	senderMetadata, err := h.coordinator.NetworkRegistry().ByName(req.SenderNetwork)
	if err != nil {
		return errs.Registry(err, "invalid sender network name")
	}

	recipientConn, err := h.coordinator.Connector(recipientMetadata.ID)
	if err != nil {
		return errs.Registry(err, "invalid recipient network id")
	}
	senderConn, err := h.coordinator.Connector(senderMetadata.ID)
	if err != nil {
		return errs.Registry(err, "invalid sender network id")
	}

	// Fee estimation does not depend on amount yet, matching the
	// original's fixed-zero-amount stub. fee comes from the recipient
	// network's estimate, fee_percentage from the sender's (§4.8).
	recipientEstimate, err := recipientConn.EstimateTransfer(r.Context(), new(uint256.Int), req.RecipientNetwork)
	if err != nil {
		return errs.Connector(err, "could not estimate recipient network fee")
	}
	senderEstimate, err := senderConn.EstimateTransfer(r.Context(), new(uint256.Int), req.SenderNetwork)
	if err != nil {
		return errs.Connector(err, "could not estimate sender network fee")
	}

	writeJSON(w, http.StatusOK, estimateTransferResponse{
		Fee:                   recipientEstimate.Commission.Dec(),
		FeePercentage:         senderEstimate.FeePercentage.Dec(),
		EstimatedConfirmation: estimatedConfirmationSeconds,
	})
	return nil
}

// --- shared helpers ---

func (h *handlers) verifyAuth(networkID bridge.NetworkID, signature, publicKey []byte) (bridge.Address, error) {
	metadata, err := h.coordinator.NetworkRegistry().ByID(networkID)
	if err != nil {
		return bridge.Address{}, errs.Registry(err, "no such network id")
	}

	data, err := authproof.Verify(metadata.Type, signature, publicKey)
	if err != nil {
		return bridge.Address{}, errs.Crypto(err, "signature verification failed")
	}

	return bridge.NewAddress(networkID, data), nil
}

func parseUintQuery(r *http.Request, name string) (uint32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errs.Registry(nil, name+" query parameter is required")
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errs.Registry(err, "invalid "+name)
	}
	return uint32(v), nil
}

func parseUintQueryDefault(r *http.Request, name string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errs.Registry(err, "invalid "+name)
	}
	return v, nil
}

func parseOptionalHexQuery(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return decodeHex(s)
}

// parseWireAmount validates amount as a well-formed, non-negative base-10
// decimal string (the wire encoding, §6) before converting it to the
// internal 256-bit raw representation.
func parseWireAmount(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, errs.Registry(nil, "amount must not be negative")
	}
	return uint256.FromDecimal(d.StringFixed(0))
}

func parseStoredAmount(s string) (*uint256.Int, error) {
	return uint256.FromDecimal(s)
}
