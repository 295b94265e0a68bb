package httpapi

import (
	"encoding/json"
	"net/http"
)

// envelope is the single response shape every endpoint writes.
type envelope struct {
	Status     string `json:"status,omitempty"`
	Message    string `json:"message,omitempty"`
	Results    *int   `json:"results,omitempty"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	Details    any    `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Message: message, Data: data})
}

// failure is the error summary and hint for one kind of failure.
type failure struct {
	status string
	msg    string
	hint   string
}

// endpoint describes how an endpoint reports its failures.
type endpoint struct {
	invalid    failure
	failed     failure
	failedCode int
}

const (
	hintSendCelular  = "Envie um JSON com o campo 'celular'."
	hintSendRequired = "Envie um JSON com os campos obrigatórios preenchidos."
	hintCheckData    = "Verifique os dados enviados e tente novamente"
	hintRetryLater   = "Tente novamente mais tarde"
)

var (
	invalidInput  = failure{msg: "Parâmetros inválidos", hint: "Corrija os campos listados em 'details' e tente novamente."}
	malformedBody = failure{msg: "JSON inválido", hint: "Envie um corpo JSON válido."}
	unavailable   = failure{msg: "Banco de dados indisponível", hint: "Tente novamente em instantes"}
)

var (
	epCustomerUpsert = endpoint{
		invalid:    failure{msg: "O campo 'celular' é obrigatório.", hint: hintSendCelular},
		failed:     failure{msg: "Erro ao processar a requisição", hint: hintCheckData},
		failedCode: http.StatusBadRequest,
	}
	epCustomerList = endpoint{
		failed:     failure{msg: "Erro ao listar clientes", hint: hintRetryLater},
		failedCode: http.StatusInternalServerError,
	}
	epCustomerGet = endpoint{
		invalid:    failure{msg: "O parâmetro 'celular' é obrigatório.", hint: "Informe o celular na URL."},
		failed:     failure{msg: "Erro na busca"},
		failedCode: http.StatusBadRequest,
	}
	epCustomerDelete = endpoint{
		invalid:    failure{msg: "O parâmetro 'celular' é obrigatório.", hint: "Informe o celular na URL."},
		failed:     failure{msg: "Erro na exclusão"},
		failedCode: http.StatusBadRequest,
	}
	epPromptCreate = endpoint{
		invalid:    failure{msg: "Os campos 'prompt', 'instrupadrao' e 'obs' são obrigatórios.", hint: hintSendRequired},
		failed:     failure{msg: "Erro ao cadastrar o prompt", hint: hintCheckData},
		failedCode: http.StatusInternalServerError,
	}
	epPromptList = endpoint{
		failed:     failure{msg: "Erro ao listar os prompts", hint: hintRetryLater},
		failedCode: http.StatusInternalServerError,
	}
	epTokens = endpoint{
		invalid:    failure{msg: "Os campos 'celular', 'prefResp', 'pergunta', 'resposta', 'nomeIA' e 'dolarCota' são obrigatórios.", hint: hintSendRequired},
		failed:     failure{msg: "Erro ao registrar o custo dos tokens", hint: hintCheckData},
		failedCode: http.StatusInternalServerError,
	}
	epFinance = endpoint{
		invalid:    failure{msg: "Os campos 'celular', 'codOper', 'invoiceNumber' e 'codPacote' são obrigatórios.", hint: hintSendRequired},
		failed:     failure{msg: "Erro ao registrar o controle financeiro", hint: hintCheckData},
		failedCode: http.StatusInternalServerError,
	}
	epPackagesDefault = endpoint{
		failed:     failure{msg: "Erro ao lista pacote", hint: hintRetryLater},
		failedCode: http.StatusInternalServerError,
	}
	epPackagesKeyword = endpoint{
		invalid:    failure{msg: "Parâmetros inválidos", hint: "A palavra-chave deve ter até 255 caracteres."},
		failed:     failure{msg: "Erro ao listar pacotes", hint: hintRetryLater},
		failedCode: http.StatusInternalServerError,
	}
	epThreadUpsert = endpoint{
		invalid:    failure{status: "fail", msg: "Dados incompletos", hint: "Verifique: ThreadId (até 50 chars), Celular (até 20 chars), Assunto não vazio"},
		failed:     failure{status: "fail", msg: "Falha na operação", hint: hintCheckData},
		failedCode: http.StatusInternalServerError,
	}
	epThreadList = endpoint{
		invalid:    failure{status: "fail", msg: "Parâmetro obrigatório", hint: "Informe 'celular' na query string."},
		failed:     failure{status: "error", msg: "Falha na busca", hint: "O formato do celular deve ser '5511999999999'"},
		failedCode: http.StatusInternalServerError,
	}
	epThreadListAll = endpoint{
		failed:     failure{status: "error", msg: "Falha na listagem", hint: "Verifique se a procedure SpSeThreadIA existe no banco"},
		failedCode: http.StatusInternalServerError,
	}
	epThreadDelete = endpoint{
		invalid:    failure{status: "fail", msg: "TreadId é obrigatório para exclusão", hint: "O campo 'TreadId' deve ser fornecido"},
		failed:     failure{status: "fail", msg: "Exclusão falhou", hint: "Verifique se a thread existe e tente novamente"},
		failedCode: http.StatusBadRequest,
	}
	epReport = endpoint{
		failed:     failure{msg: "Erro ao gerar o relatório", hint: hintRetryLater},
		failedCode: http.StatusInternalServerError,
	}
	epReportContacts = endpoint{
		failed:     failure{msg: "Erro ao listar os contatos", hint: hintRetryLater},
		failedCode: http.StatusInternalServerError,
	}
)
