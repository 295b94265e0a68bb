package testutil

import (
	"encoding/json"
	"fmt"
)

// SamplePhone is the customer phone the fixtures share.
const SamplePhone = "5511999999999"

// SampleCustomer returns a customer upsert body.
func SampleCustomer(nome string) []byte {
	return mustJSON(map[string]any{
		"celular":    SamplePhone,
		"nome":       nome,
		"email":      "ana@example.com",
		"assinante":  "sim",
		"pagtoEmDia": "sim",
		"prefResp":   "texto",
	})
}

// SampleTokens returns a token record body for one question/answer pair.
func SampleTokens() []byte {
	return mustJSON(map[string]any{
		"celular":   SamplePhone,
		"prefResp":  "texto",
		"pergunta":  "Qual o saldo?",
		"resposta":  "Seu saldo é de 10 mensagens.",
		"nomeIA":    "gpt-4o",
		"dolarCota": 5.1,
	})
}

// SampleFinance returns a financial operation body.
func SampleFinance(invoice int) []byte {
	return mustJSON(map[string]any{
		"celular":       SamplePhone,
		"codOper":       1,
		"invoiceNumber": invoice,
		"codPacote":     1,
		"dataOper":      "2024-05-01 10:30",
	})
}

// SampleThread returns a thread upsert body.
func SampleThread(id string) []byte {
	return mustJSON(map[string]any{
		"ThreadId": id,
		"Celular":  SamplePhone,
		"Assunto":  fmt.Sprintf("assunto %s", id),
	})
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
