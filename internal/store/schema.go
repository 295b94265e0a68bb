package store

const schemaClientes = `
CREATE TABLE IF NOT EXISTS clientes (
    celular TEXT PRIMARY KEY,
    nome_cli TEXT NOT NULL DEFAULT '',
    cpf TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    assinante TEXT NOT NULL DEFAULT '',
    pagto_em_dia TEXT NOT NULL DEFAULT '',
    pref_resp TEXT NOT NULL DEFAULT '',
    nome_tool_chamadora TEXT NOT NULL DEFAULT '',
    saldo_troca_mens_texto INTEGER NOT NULL DEFAULT 0,
    saldo_troca_mens_audio INTEGER NOT NULL DEFAULT 0,
    validade TEXT,
    criado_em TEXT NOT NULL,
    atualizado_em TEXT NOT NULL
);
`

const schemaComandos = `
CREATE TABLE IF NOT EXISTS comandos_ia (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    prompt_ia TEXT NOT NULL,
    instr_padrao TEXT NOT NULL,
    obs TEXT NOT NULL,
    criado_em TEXT NOT NULL
);
`

const schemaTokens = `
CREATE TABLE IF NOT EXISTS conta_tokens (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    celular TEXT NOT NULL,
    pref_resp TEXT NOT NULL,
    pergunta TEXT NOT NULL,
    resposta TEXT NOT NULL,
    nome_ia TEXT NOT NULL,
    dolar_cota TEXT NOT NULL,
    criado_em TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conta_tokens_celular ON conta_tokens(celular);
`

const schemaFinanceiro = `
CREATE TABLE IF NOT EXISTS controle_financ (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    celular TEXT NOT NULL,
    cod_oper INTEGER NOT NULL,
    invoice_number INTEGER NOT NULL,
    cod_pacote INTEGER NOT NULL,
    data_oper TEXT,
    linha_pix TEXT NOT NULL DEFAULT '',
    data_cria_pix TEXT NOT NULL DEFAULT '',
    data_rec_pix TEXT NOT NULL DEFAULT '',
    criado_em TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_controle_financ_celular ON controle_financ(celular);
`

const schemaPacotes = `
CREATE TABLE IF NOT EXISTS pacotes (
    cod_pacote INTEGER PRIMARY KEY,
    descricao TEXT NOT NULL,
    palavra_chave TEXT NOT NULL DEFAULT '',
    qtd_mens_texto INTEGER NOT NULL DEFAULT 0,
    qtd_mens_audio INTEGER NOT NULL DEFAULT 0,
    valor TEXT NOT NULL,
    padrao INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO pacotes (cod_pacote, descricao, palavra_chave, qtd_mens_texto, qtd_mens_audio, valor, padrao) VALUES
    (1, 'Pacote Básico', 'basico', 100, 20, '19.90', 1),
    (2, 'Pacote Plus', 'plus', 300, 60, '39.90', 0),
    (3, 'Pacote Premium', 'premium', 1000, 200, '89.90', 0);
`

const schemaThreads = `
CREATE TABLE IF NOT EXISTS threads_ia (
    tread_id TEXT PRIMARY KEY,
    celular TEXT NOT NULL,
    assunto TEXT NOT NULL,
    criado_em TEXT NOT NULL,
    atualizado_em TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_threads_ia_celular ON threads_ia(celular);
`

const schemaMigrations = `
CREATE TABLE IF NOT EXISTS migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    applied_at TEXT NOT NULL
);
`

// initialSchema is the version-1 layout.
var initialSchema = []string{
	schemaClientes,
	schemaComandos,
	schemaTokens,
	schemaFinanceiro,
	schemaPacotes,
	schemaThreads,
}
