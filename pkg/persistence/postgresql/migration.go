package postgresql

// OpenAPI documents and response bodies are stored as JSON rather than JSONB:
// their key order is significant for schema scans and response property order.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE routes (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				flow_id VARCHAR(255) NOT NULL,
				prefix TEXT NOT NULL,
				openapi JSON,
				type_schema JSON,
				position INTEGER NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_routes_position ON routes(position);

			CREATE TABLE flows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				input VARCHAR(255) NOT NULL DEFAULT '',
				steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
		2: `
			CREATE TABLE request_logs (
				id VARCHAR(255) PRIMARY KEY,
				status VARCHAR(20) NOT NULL CHECK (status IN ('RECEIVED', 'PROCESSING', 'DONE', 'ERROR')),
				url TEXT NOT NULL DEFAULT '',
				url_path TEXT NOT NULL DEFAULT '',
				http_method VARCHAR(16) NOT NULL DEFAULT '',
				http_headers JSONB,
				http_body TEXT NOT NULL DEFAULT '',
				http_content_type VARCHAR(255) NOT NULL DEFAULT '',
				route VARCHAR(255) NOT NULL DEFAULT '',
				flow_run VARCHAR(255) NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT '',
				error_logid VARCHAR(255) NOT NULL DEFAULT '',
				http_response_code INTEGER NOT NULL DEFAULT 0,
				response_header JSONB,
				response_body JSON,
				result_text TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_request_logs_status ON request_logs(status);
			CREATE INDEX idx_request_logs_route ON request_logs(route);
			CREATE INDEX idx_request_logs_created_at ON request_logs(created_at);
		`,
	}
}
