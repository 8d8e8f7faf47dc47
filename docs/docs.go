// Package docs регистрирует OpenAPI-описание API для http-swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/register": {"post": {"tags": ["Auth"], "summary": "Регистрация пользователя", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}},
        "/login": {"post": {"tags": ["Auth"], "summary": "Вход, выдача JWT", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/subscriptions": {
            "get": {"tags": ["Subscriptions"], "summary": "Список подписок", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Subscriptions"], "summary": "Создать подписку", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}
        },
        "/subscriptions/{id}": {
            "get": {"tags": ["Subscriptions"], "summary": "Получить подписку", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"tags": ["Subscriptions"], "summary": "Обновить подписку", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["Subscriptions"], "summary": "Удалить подписку", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/subscriptions/{id}/cancel": {"post": {"tags": ["Subscriptions"], "summary": "Отменить подписку", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/subscriptions/{id}/reminders": {"post": {"tags": ["Reminders"], "summary": "Создать напоминание", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}},
        "/reminders": {"get": {"tags": ["Reminders"], "summary": "Список напоминаний", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/reminders/{id}": {"delete": {"tags": ["Reminders"], "summary": "Удалить неотправленное напоминание", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/notifications": {"get": {"tags": ["Notifications"], "summary": "Список уведомлений", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/notifications/unread-count": {"get": {"tags": ["Notifications"], "summary": "Число непрочитанных уведомлений", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/notifications/read-all": {"post": {"tags": ["Notifications"], "summary": "Отметить все уведомления прочитанными", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/notifications/{id}/read": {"post": {"tags": ["Notifications"], "summary": "Отметить уведомление прочитанным", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/notifications/{id}": {"delete": {"tags": ["Notifications"], "summary": "Удалить уведомление", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/analytics": {"get": {"tags": ["Analytics"], "summary": "Аналитика расходов", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/admin/reminders/dispatch": {"post": {"tags": ["Admin"], "summary": "Запустить рассылку напоминаний", "security": [{"BearerAuth": []}], "responses": {"202": {"description": "Accepted"}, "403": {"description": "Forbidden"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "TrialGuard API",
	Description:      "API для учёта подписок и пробных периодов с напоминаниями",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
